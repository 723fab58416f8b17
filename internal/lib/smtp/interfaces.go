// Package smtp отправляет письма академии через SMTP-сервер.
package smtp

import "io"

// Client подмножество *smtp.Client, нужное для отправки одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает авторизованное соединение с почтовым сервером.
type Dialer interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
