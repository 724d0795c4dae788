package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/tieubaoca/support-assistant/types"
)

const (
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"

	// ExportBaseName is the file name offered for downloads, without extension.
	ExportBaseName = "jiopay_chat_history"
)

// Formatter renders a conversation into a downloadable document.
type Formatter interface {
	Format(messages []types.ChatMessage) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type ExportService struct {
	assistantName string
}

func NewExportService(assistantName string) *ExportService {
	return &ExportService{assistantName: assistantName}
}

// Formatter returns the formatter for format; an empty format means markdown.
func (s *ExportService) Formatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md", "":
		return &MarkdownFormatter{assistantName: s.assistantName}, nil
	case FormatPDF:
		return &PDFFormatter{assistantName: s.assistantName}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ExportHistory renders the session's messages in format.
func (s *ExportService) ExportHistory(session *Session, format string) ([]byte, Formatter, error) {
	f, err := s.Formatter(format)
	if err != nil {
		return nil, nil, err
	}
	data, err := f.Format(session.Messages())
	if err != nil {
		return nil, nil, err
	}
	return data, f, nil
}

type MarkdownFormatter struct {
	assistantName string
}

func (f *MarkdownFormatter) Format(messages []types.ChatMessage) ([]byte, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s Chat History\n\n", f.assistantName)
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleUser:
			fmt.Fprintf(&sb, "## User\n%s\n\n", msg.Content)
		case types.RoleAssistant:
			fmt.Fprintf(&sb, "## %s\n%s\n\n", f.assistantName, msg.Content)
			if len(msg.ToolCalls) > 0 {
				sb.WriteString("### Tool Calls\n")
				for _, tc := range msg.ToolCalls {
					name := tc.Name
					if name == "" {
						name = "Tool"
					}
					output := tc.Output
					if output == "" {
						output = "No output"
					}
					fmt.Fprintf(&sb, "- **%s**\n", name)
					fmt.Fprintf(&sb, "  - Input: %s\n", tc.Input)
					fmt.Fprintf(&sb, "  - Output: %s\n", output)
				}
				sb.WriteString("\n")
			}
		}
	}
	return []byte(sb.String()), nil
}

func (f *MarkdownFormatter) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func (f *MarkdownFormatter) FileExtension() string {
	return ".md"
}

// PDFFormatter uses the core Helvetica font; text outside cp1252 is
// approximated by the font translator.
type PDFFormatter struct {
	assistantName string
}

func (f *PDFFormatter) Format(messages []types.ChatMessage) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(f.assistantName+" Chat History", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 10, tr(f.assistantName+" Chat History"), "", "", false)
	pdf.Ln(4)

	for _, msg := range messages {
		header := "User"
		if msg.Role == types.RoleAssistant {
			header = f.assistantName
		}
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 8, tr(header), "", "", false)

		pdf.SetFont("Helvetica", "", 11)
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, tr(msg.Content), "", "", false)

		if len(msg.ToolCalls) > 0 {
			pdf.SetFont("Helvetica", "I", 10)
			for _, tc := range msg.ToolCalls {
				pdf.MultiCell(0, 5, tr(fmt.Sprintf("Tool %s | Input: %s | Output: %s", tc.Name, tc.Input, truncate(tc.Output, 500))), "", "", false)
			}
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *PDFFormatter) ContentType() string {
	return "application/pdf"
}

func (f *PDFFormatter) FileExtension() string {
	return ".pdf"
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
