package components

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FileEntry represents a file or directory in the browser
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// FileBrowser picks an audio file to import into a track
type FileBrowser struct {
	Width       int
	Height      int
	CurrentPath string
	Entries     []FileEntry
	Selected    int
	Offset      int
	Target      string // name of the track the import goes to
	Err         error

	exts map[string]bool

	// Styles
	DirStyle      lipgloss.Style
	FileStyle     lipgloss.Style
	SizeStyle     lipgloss.Style
	SelectedStyle lipgloss.Style
	PathStyle     lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewFileBrowser creates a file browser at startPath listing directories
// and files with one of exts. An empty startPath opens the home directory.
func NewFileBrowser(startPath string, exts []string, width, height int) FileBrowser {
	fb := FileBrowser{
		Width:  width,
		Height: height,
		exts:   make(map[string]bool, len(exts)),
		DirStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true),
		FileStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")),
		SizeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("255")).
			Bold(true),
		PathStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}
	for _, ext := range exts {
		fb.exts[strings.ToLower(ext)] = true
	}

	if startPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			startPath = home
		} else {
			startPath = "/"
		}
	}

	fb.Navigate(startPath)
	return fb
}

// Navigate lists path: parent first, then directories, then importable
// files, each group sorted case-insensitively. Hidden entries are skipped.
func (fb *FileBrowser) Navigate(path string) {
	fb.CurrentPath = path
	fb.Selected = 0
	fb.Offset = 0
	fb.Err = nil
	fb.Entries = nil

	entries, err := os.ReadDir(path)
	if err != nil {
		fb.Err = err
		return
	}

	if parent := filepath.Dir(path); parent != path {
		fb.Entries = append(fb.Entries, FileEntry{Name: "..", Path: parent, IsDir: true})
	}

	var dirs, files []FileEntry
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		e := FileEntry{Name: entry.Name(), Path: filepath.Join(path, entry.Name()), IsDir: entry.IsDir()}
		switch {
		case e.IsDir:
			dirs = append(dirs, e)
		case fb.exts[strings.ToLower(filepath.Ext(e.Name))]:
			if info, err := entry.Info(); err == nil {
				e.Size = info.Size()
			}
			files = append(files, e)
		}
	}

	byName := func(list []FileEntry) {
		sort.Slice(list, func(i, j int) bool {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		})
	}
	byName(dirs)
	byName(files)
	fb.Entries = append(fb.Entries, dirs...)
	fb.Entries = append(fb.Entries, files...)
}

// Update handles input messages
func (fb FileBrowser) Update(msg tea.Msg) (FileBrowser, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return fb, nil
	}
	switch key.String() {
	case "up", "k":
		fb.move(-1)
	case "down", "j":
		fb.move(1)
	case "pgup":
		fb.move(-fb.visibleHeight())
	case "pgdown":
		fb.move(fb.visibleHeight())
	case "home":
		fb.move(-len(fb.Entries))
	case "end":
		fb.move(len(fb.Entries))
	case "backspace":
		if parent := filepath.Dir(fb.CurrentPath); parent != fb.CurrentPath {
			fb.Navigate(parent)
		}
	case "~":
		if home, err := os.UserHomeDir(); err == nil {
			fb.Navigate(home)
		}
	}
	return fb, nil
}

// move shifts the selection by delta, clamped to the entries
func (fb *FileBrowser) move(delta int) {
	fb.Selected = max(0, min(fb.Selected+delta, len(fb.Entries)-1))
	visible := fb.visibleHeight()
	if fb.Selected < fb.Offset {
		fb.Offset = fb.Selected
	} else if fb.Selected >= fb.Offset+visible {
		fb.Offset = fb.Selected - visible + 1
	}
}

// SelectedEntry returns the currently selected entry, or nil if none
func (fb *FileBrowser) SelectedEntry() *FileEntry {
	if fb.Selected >= 0 && fb.Selected < len(fb.Entries) {
		return &fb.Entries[fb.Selected]
	}
	return nil
}

// EnterSelected opens a selected directory and returns "", or returns the
// path of a selected file.
func (fb *FileBrowser) EnterSelected() string {
	entry := fb.SelectedEntry()
	if entry == nil {
		return ""
	}
	if entry.IsDir {
		fb.Navigate(entry.Path)
		return ""
	}
	return entry.Path
}

// visibleHeight returns the number of visible items
func (fb *FileBrowser) visibleHeight() int {
	return max(1, fb.Height-8) // border, header, path, help
}

// View renders the file browser
func (fb FileBrowser) View() string {
	var sb strings.Builder

	if fb.Target != "" {
		sb.WriteString(fb.PathStyle.Render("Import into " + fb.Target))
		sb.WriteString("\n")
	}
	sb.WriteString(fb.SizeStyle.Render("📁 " + fb.CurrentPath))
	sb.WriteString("\n\n")

	if fb.Err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		sb.WriteString(errorStyle.Render("Error: " + fb.Err.Error()))
		sb.WriteString("\n")
	}

	visible := fb.visibleHeight()
	end := min(fb.Offset+visible, len(fb.Entries))
	nameWidth := max(10, fb.Width-24)

	files := 0
	for _, e := range fb.Entries {
		if !e.IsDir {
			files++
		}
	}

	for i := fb.Offset; i < end; i++ {
		entry := fb.Entries[i]

		icon, size := "📂 ", ""
		if !entry.IsDir {
			icon, size = "🎵 ", formatSize(entry.Size)
		}
		name := icon + entry.Name
		if len(name) > nameWidth {
			name = name[:nameWidth-3] + "..."
		}

		switch {
		case i == fb.Selected:
			sb.WriteString(fb.SelectedStyle.Render(name))
		case entry.IsDir:
			sb.WriteString(fb.DirStyle.Render(name))
		default:
			sb.WriteString(fb.FileStyle.Render(name))
		}
		if size != "" {
			sb.WriteString("  " + fb.SizeStyle.Render(size))
		}
		sb.WriteString("\n")
	}

	for i := end - fb.Offset; i < visible; i++ {
		sb.WriteString("\n")
	}

	sb.WriteString(fb.SizeStyle.Render(fmt.Sprintf("%s\nAudio files: %d", strings.Repeat("─", 20), files)))
	sb.WriteString("\n\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(helpStyle.Render("[Enter] Open/Import  [Backspace] Up  [~] Home  [Esc] Cancel"))

	return fb.BorderStyle.Width(fb.Width - 4).Render(sb.String())
}

// formatSize renders a byte count with a binary unit
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
