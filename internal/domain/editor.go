// domain/editor.go
package domain

import "encoding/json"

// EditorUser описывает пользователя для внешнего редактора
type EditorUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
}

// EditorDocument описывает документ в конфигурации редактора
type EditorDocument struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	FileType string `json:"fileType"`
	URL      string `json:"url"`
}

// EditorOptions задает настройки сессии редактирования
type EditorOptions struct {
	CallbackURL string     `json:"callbackUrl"`
	Mode        string     `json:"mode"`
	User        EditorUser `json:"user"`
}

// EditorConfig представляет подписанный дескриптор доступа,
// который клиент передает внешнему редактору
type EditorConfig struct {
	DocumentType string         `json:"documentType"`
	Document     EditorDocument `json:"document"`
	EditorConfig EditorOptions  `json:"editorConfig"`
	Token        string         `json:"token"`
}

// EditorCallback описывает тело входящего коллбэка от редактора.
// Users и Actions информационные и не разбираются: их формат
// отличается между редакторами и не должен блокировать сохранение.
type EditorCallback struct {
	Status  int             `json:"status"`
	URL     string          `json:"url,omitempty"`
	Key     string          `json:"key"`
	Users   json.RawMessage `json:"users,omitempty"`
	Actions json.RawMessage `json:"actions,omitempty"`
}

// CallbackResponse представляет ответ редактору: 0 успех, 1 отказ
type CallbackResponse struct {
	Error int `json:"error"`
}
