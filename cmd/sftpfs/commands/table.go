package commands

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/charlesng35/sftpfs/internal/settings"
)

// TableRenderer is implemented by command output that prints as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// printTable writes data as a borderless, left aligned table.
func printTable(w io.Writer, data TableRenderer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.Headers())

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

	table.AppendBulk(data.Rows())
	table.Render()
}

// SettingList is a list of stored settings for table rendering.
type SettingList []settings.Entry

// Headers implements TableRenderer.
func (sl SettingList) Headers() []string {
	return []string{"KEY", "VALUE", "SECRET"}
}

// Rows implements TableRenderer.
func (sl SettingList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, e := range sl {
		rows = append(rows, []string{e.Key, e.Value, strconv.FormatBool(e.Secret)})
	}
	return rows
}
