package convert

import (
	"context"
	"os"

	"github.com/itohio/gobsr/pkg/bsr"
)

// ImportFile converts the WAV file at src into a recording at dst. A failed
// conversion removes dst.
func ImportFile(ctx context.Context, src, dst string) (info Info, err error) {
	in, err := os.Open(src)
	if err != nil {
		return info, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return info, err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	return ImportWAV(ctx, in, out)
}

// ExportFile writes frames [start, end) of rec to a WAV file at dst. A
// failed export removes dst.
func ExportFile(ctx context.Context, rec *bsr.Recording, dst string, start, end int) (info Info, err error) {
	out, err := os.Create(dst)
	if err != nil {
		return info, err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	return ExportWAV(ctx, rec, out, start, end)
}
