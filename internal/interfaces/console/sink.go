package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"tzweb/internal/application/port"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type Sink struct {
	out io.Writer
}

func NewSink() port.Sink { return &Sink{out: os.Stdout} }

// NewSinkTo 写到任意 writer（测试用）
func NewSinkTo(w io.Writer) *Sink { return &Sink{out: w} }

func (s *Sink) WriteBlock(title, body string) error {
	if title != "" {
		if _, err := fmt.Fprintln(s.out, titleStyle.Render(" "+title+" ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(s.out, "%s\n\n", body)
	return err
}

func (s *Sink) Notice(line string) error {
	_, err := fmt.Fprintln(s.out, noticeStyle.Render(line))
	return err
}
