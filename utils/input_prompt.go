package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/capscan/capscan/constants/lipgloss"
)

// ConfirmPrompt asks a yes/no question and returns the answer. EOF and
// blank input count as no.
func ConfirmPrompt(reader *bufio.Reader, question string) (bool, error) {
	fmt.Print(lipgloss.Blue.Render(fmt.Sprintf("%s [y/N]: ", question)))

	answer, err := reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("error reading input: %w", err)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
