//go:build !tinygo

package display

// ConsoleRenderer prints the screen content, for host builds.
type ConsoleRenderer struct{}

func (ConsoleRenderer) Render(rows [5]string) error {
	println("---- display ----")
	for _, row := range rows {
		println("|", row)
	}
	return nil
}
