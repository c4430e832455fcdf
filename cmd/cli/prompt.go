package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// readPassword asks for a password with masked input on a terminal and
// reads one line from stdin otherwise.
func (a *app) readPassword(title string) (string, error) {
	if isTerminal(a.in) {
		var pw string
		input := huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&pw)
		if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
			return "", fmt.Errorf("prompt failed: %w", err)
		}
		if pw == "" {
			return "", errors.New("password is required")
		}
		return pw, nil
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("password is required (--password or stdin)")
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func (a *app) passwordFlag(pw, title string) (string, error) {
	if pw != "" {
		return pw, nil
	}
	return a.readPassword(title)
}
