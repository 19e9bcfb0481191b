// Package iocli reads operator input for the command line tools.
package iocli

// IO is the console used by interactive commands
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}
