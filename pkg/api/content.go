package api

// SettingRequest представляет новое значение настройки сайта; null очищает значение
type SettingRequest struct {
	Value *string `json:"value"`
}

// SubscribeRequest представляет подписку на уведомления
type SubscribeRequest struct {
	Email string `json:"email"`
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Database string `json:"database"`
}
