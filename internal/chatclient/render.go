package chatclient

import (
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/Tyrowin/relaychat/internal/presence"
)

// Renderer prints view changes to a terminal.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) Renderer {
	return Renderer{out: out}
}

// Entry prints one log line.
func (r Renderer) Entry(e Entry) {
	switch {
	case e.System:
		fmt.Fprintln(r.out, color.Gray.Sprintf("* %s", e.Message))
	case e.Private && e.To != "":
		fmt.Fprintf(r.out, "%s %s (Private)\n", color.Magenta.Sprintf("%s -> %s:", e.User, e.To), e.Message)
	case e.Private:
		fmt.Fprintf(r.out, "%s %s (Private)\n", color.Magenta.Sprintf("%s:", e.User), e.Message)
	default:
		fmt.Fprintf(r.out, "%s %s\n", color.Cyan.Sprintf("%s:", e.User), e.Message)
	}
}

// Typing prints the typing indicator when it is not empty.
func (r Renderer) Typing(line string) {
	if line == "" {
		return
	}
	fmt.Fprintln(r.out, color.Yellow.Sprint(line))
}

// Users prints the presence set as a table.
func (r Renderer) Users(users []presence.User) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Username", "Connection"})
	for _, u := range users {
		table.Append([]string{u.Username, u.ID})
	}
	table.Render()
}
