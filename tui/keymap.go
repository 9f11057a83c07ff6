package tui

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeySpace     = " "
	KeyStop      = "s"
	KeyEnter     = "enter"
	KeyCancel    = "c"
	KeyEsc       = "esc"
	KeyMode      = "m"
)
