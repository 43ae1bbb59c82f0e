// Package iocli ввод-вывод CLI: печать, чтение строк и секретов.
package iocli

//go:generate moq -out io_mock.go . IO

// IO терминал команды. Write позволяет направить в IO вывод flag.FlagSet.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
