package output

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lumen-signage/lumen/internal/assets"
)

// HumanPrinter prints human-readable output.
type HumanPrinter struct{}

// Print renders human output.
func (HumanPrinter) Print(v any) error {
	switch data := v.(type) {
	case EntriesResult:
		return printEntries(data.Entries)
	case TreeResult:
		return printEntries(data.Entries)
	case MkdirResult:
		if !data.Created {
			_, err := fmt.Fprintf(os.Stdout, "%s already exists\n", data.Path)
			return err
		}
		_, err := fmt.Fprintf(os.Stdout, "created %s\n", data.Path)
		return err
	case ImportResult:
		_, err := fmt.Fprintf(os.Stdout, "imported %d of %d\n", len(data.Copied), data.Requested)
		return err
	case DeleteResult:
		if !data.Deleted {
			_, err := fmt.Fprintf(os.Stdout, "%s not found\n", data.Path)
			return err
		}
		_, err := fmt.Fprintf(os.Stdout, "deleted %s\n", data.Path)
		return err
	case IdentityResult:
		_, err := fmt.Fprintf(os.Stdout, "pairing code %s (device %s)\n",
			data.Identity.PairingCode, data.Identity.DeviceID)
		return err
	case StatusResult:
		return printStatus(data)
	default:
		_, err := fmt.Fprintln(os.Stdout, "ok")
		return err
	}
}

func printEntries(entries []assets.Entry) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "PATH\tKIND\tTYPE\tSIZE"); err != nil {
		return err
	}
	for _, entry := range entries {
		size := ""
		if entry.Kind == assets.KindFile {
			size = fmt.Sprintf("%d", entry.SizeBytes)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			entry.RelativePath, entry.Kind, entry.MediaType, size); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printStatus(result StatusResult) error {
	screen := result.Screen
	lastPing := "never"
	if screen.LastPing > 0 {
		lastPing = time.Unix(screen.LastPing, 0).Format(time.RFC3339)
	}
	playlist := screen.CurrentPlaylistID
	if playlist == "" {
		playlist = "none"
	}
	_, err := fmt.Fprintf(os.Stdout, "%s  [%s]  playlist %s  last ping %s\n",
		screen.Name, screen.Status, playlist, lastPing)
	return err
}
