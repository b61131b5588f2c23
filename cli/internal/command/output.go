package command

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/itchan-dev/echobox/shared/dashboard"
	"github.com/itchan-dev/echobox/shared/domain"
)

const (
	timeLayout   = "2006-01-02 15:04"
	previewRunes = 60
)

var (
	unreadStyle = color.New(color.FgYellow, color.OpBold)
	readStyle   = color.New(color.FgGray)
	headerStyle = color.New(color.FgGreen, color.OpBold)
)

func statusLabel(m domain.Message) string {
	if m.IsRead {
		return readStyle.Render("read")
	}
	return unreadStyle.Render("unread")
}

// preview collapses whitespace and cuts s to n characters.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func listPreview(m domain.Message) string {
	if m.Content == "" && m.HasMedia() {
		return m.FileName
	}
	return preview(m.Content, previewRunes)
}

func renderPage(w io.Writer, page dashboard.Page, unread int) {
	if len(page.Messages) == 0 {
		fmt.Fprintln(w, "No messages match.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Type", "Status", "Received", "Preview"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, m := range page.Messages {
		table.Append([]string{
			m.Id,
			string(m.Type),
			statusLabel(m),
			m.CreatedAt.Local().Format(timeLayout),
			listPreview(m),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\nPage %d of %d, %d messages, %d unread\n", page.Page, page.TotalPages, page.Total, unread)
}

func renderMessage(w io.Writer, m domain.Message) {
	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("%-9s", label+":")), value)
	}
	field("ID", m.Id)
	field("Type", string(m.Type))
	field("Received", m.CreatedAt.Local().Format(timeLayout))
	field("Status", statusLabel(m))
	if m.HasMedia() {
		size := ""
		if m.FileSize > 0 {
			size = " (" + domain.FormatFileSize(m.FileSize) + ")"
		}
		field("File", m.FileName+size)
	}
	field("Share", m.WhatsAppLink())
	if m.Content != "" {
		fmt.Fprintf(w, "\n%s\n", m.Content)
	}
}
