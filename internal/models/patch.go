package models

import "time"

// Patch is a sparse set of field updates keyed by field name.
// A present key means "set this field" (a nil value sets NULL); an absent key leaves the field untouched.
type Patch map[string]any

// Set records a value for the field and returns the patch for chaining.
func (p Patch) Set(field string, value any) Patch {
	p[field] = value
	return p
}

// Has reports whether the field is present in the patch.
func (p Patch) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// String returns the field as a string if it is present and of type string.
func (p Patch) String(field string) (string, bool) {
	v, ok := p[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy of the patch.
func (p Patch) Clone() Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// UserPatch builds a patch for the user upsert from optional fields.
// nil pointers are left out of the patch.
type UserPatch struct {
	Name         *string
	Email        *string
	LoginMethod  *string
	Role         *Role
	LastSignedIn *time.Time
}

// Patch converts the optional fields into a sparse Patch.
func (u UserPatch) Patch() Patch {
	p := Patch{}
	if u.Name != nil {
		p.Set("name", *u.Name)
	}
	if u.Email != nil {
		p.Set("email", *u.Email)
	}
	if u.LoginMethod != nil {
		p.Set("loginMethod", *u.LoginMethod)
	}
	if u.Role != nil {
		p.Set("role", string(*u.Role))
	}
	if u.LastSignedIn != nil {
		p.Set("lastSignedIn", *u.LastSignedIn)
	}
	return p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
