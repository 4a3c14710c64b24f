package download

import "context"

// Downloader defines what a downloader should be able to do
type Downloader interface {
	DownloadFile(ctx context.Context, url, filepath, expectedHash string) error
	VerifyFileHash(filepath, expectedHash string) error
}
