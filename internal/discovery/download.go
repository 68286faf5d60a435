package discovery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anton-kx/timetable-api/pkg/storage"
)

// Downloader fetches a discovered file into the spool directory.
type Downloader struct {
	fetcher fetcher
	spool   *storage.Spool
	logger  *zap.Logger
}

// NewDownloader builds a Downloader writing into the given spool.
func NewDownloader(f fetcher, spool *storage.Spool, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{fetcher: f, spool: spool, logger: logger}
}

// Download fetches the link and spools it to disk, returning the local path.
// The spooled name carries a random prefix so two runs never clash on a file.
func (d *Downloader) Download(ctx context.Context, link FileLink) (string, error) {
	body, err := d.fetcher.Get(ctx, link.URL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", link.URL, err)
	}

	name := uuid.NewString() + "_" + link.Filename
	path, err := d.spool.Save(name, body)
	if err != nil {
		return "", err
	}
	d.logger.Debug("downloaded timetable file",
		zap.String("url", link.URL),
		zap.String("path", path),
		zap.Int("bytes", len(body)),
	)
	return path, nil
}
