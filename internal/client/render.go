package client

import (
	"fmt"
	"strings"

	"github.com/Anthya1104/dss/internal/contract"
)

// RenderListing formats a ListFilesData the way user.py's handle_ls prints
// it: one heading per DSS with its disk roster, then a right-aligned
// file/size/owner table, kept separate from the command logic so it can be
// tested without a live manager.
func RenderListing(data *contract.ListFilesData) string {
	if len(data.DSSes) == 0 {
		return "No DSSs configured\n"
	}

	var b strings.Builder
	sep := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "\n%s\nDistributed Storage Systems - File Listing\n%s\n\n", sep, sep)

	for _, dss := range data.DSSes {
		names := make([]string, len(dss.Disks))
		for i, d := range dss.Disks {
			names[i] = d.DiskName
		}
		fmt.Fprintf(&b, "%s: Disk array with n=%d (%s) with striping-unit %d B.\n",
			dss.DSSName, dss.N, strings.Join(names, ", "), dss.StripingUnit)

		if len(dss.Files) == 0 {
			b.WriteString("  (no files)\n")
		} else {
			for _, f := range dss.Files {
				fmt.Fprintf(&b, "  %-30s %10d B  %s\n", f.FileName, f.FileSize, f.Owner)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
