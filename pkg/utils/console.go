package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// AskForCode prompts on out until a valid session code is read from in
func AskForCode(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- err
			return
		}
		readErr <- io.EOF
	}()

	for {
		fmt.Fprint(out, "Enter code from sender: ")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case err := <-readErr:
			return "", fmt.Errorf("failed to read code: %w", err)
		case code := <-lines:
			if IsValidCode(code) {
				return NormalizeCode(code), nil
			}
			fmt.Fprintln(out, "Invalid code. Please enter again.")
		}
	}
}
