package commands

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"donationBoard/internal/auth"
)

var (
	errEmptyPIN    = errors.New("PIN cannot be empty")
	errPINMismatch = errors.New("PINs do not match")
)

// HashPIN handles the hash-pin subcommand. It prints an Argon2id hash for the
// admin.pin_hash setting.
func HashPIN(args []string) {
	fs := flag.NewFlagSet("hash-pin", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: donationBoard hash-pin\n\n")
		fmt.Fprintf(os.Stderr, "Prints an Argon2id hash of the admin PIN for admin.pin_hash.\n")
		fmt.Fprintf(os.Stderr, "Reads the PIN twice from the terminal, or once per line from stdin.\n")
	}
	_ = fs.Parse(args)

	read := lineReader(os.Stdin)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		read = maskedReader(int(os.Stdin.Fd()))
	}

	pin, err := read("Enter PIN:   ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading PIN: %v\n", err)
		os.Exit(1)
	}
	confirm, err := read("Confirm PIN: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading PIN confirmation: %v\n", err)
		os.Exit(1)
	}

	hash, err := hashConfirmed(pin, confirm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func hashConfirmed(pin, confirm string) (string, error) {
	if pin == "" {
		return "", errEmptyPIN
	}
	if pin != confirm {
		return "", errPINMismatch
	}
	return auth.HashPIN(pin)
}

type promptFunc func(prompt string) (string, error)

func maskedReader(fd int) promptFunc {
	return func(prompt string) (string, error) {
		fmt.Fprint(os.Stderr, prompt)
		pin, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(pin), err
	}
}

func lineReader(r io.Reader) promptFunc {
	br := bufio.NewReader(r)
	return func(string) (string, error) {
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
