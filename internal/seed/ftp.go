package seed

import (
	"archive/zip"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the DTB downloader.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads IBGE seed archives over anonymous FTP.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// ftpConnReader ties an FTP response to its connection so closing the reader
// also releases the connection.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "seed: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "seed: quit ftp connection")
	}
	return nil
}

// Download retrieves one file from the FTP server. The caller must close the
// returned reader to release the connection.
func (f *FTPFetcher) Download(ctx context.Context, host, remotePath string) (io.ReadCloser, error) {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	zap.L().Debug("seed: ftp connecting",
		zap.String("host", host), zap.String("path", remotePath))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "seed: ftp dial")
	}

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "seed: ftp login")
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "seed: ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// DownloadToFile downloads a remote file to destPath and returns the bytes
// written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, host, remotePath, destPath string) (int64, error) {
	rc, err := f.Download(ctx, host, remotePath)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, eris.Wrap(err, "seed: create download dir")
	}
	file, err := os.Create(destPath)
	if err != nil {
		return 0, eris.Wrap(err, "seed: create file")
	}
	defer file.Close()

	n, err := io.Copy(file, rc)
	if err != nil {
		return n, eris.Wrap(err, "seed: write file")
	}
	return n, nil
}

// FetchDTB downloads the DTB archive from the IBGE FTP server, extracts the
// municipality spreadsheet, and returns its local path. remoteDir is the DTB
// directory on the server; archive is the zip file name within it.
func (f *FTPFetcher) FetchDTB(ctx context.Context, host, remoteDir, archive, destDir string) (string, error) {
	remotePath := strings.TrimRight(remoteDir, "/") + "/" + archive
	zipPath := filepath.Join(destDir, archive)

	n, err := f.DownloadToFile(ctx, host, remotePath, zipPath)
	if err != nil {
		return "", err
	}
	zap.L().Info("seed: downloaded DTB archive",
		zap.String("archive", archive), zap.Int64("bytes", n))

	xlsxPath, err := ExtractSpreadsheet(zipPath, destDir)
	if err != nil {
		return "", err
	}
	return xlsxPath, nil
}

// ExtractSpreadsheet unpacks the first .xls/.xlsx member of a zip archive
// into destDir and returns its path.
func ExtractSpreadsheet(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "seed: open archive")
	}
	defer r.Close()

	for _, member := range r.File {
		ext := strings.ToLower(filepath.Ext(member.Name))
		if ext != ".xlsx" && ext != ".xls" {
			continue
		}

		// Flatten the archive layout; member paths are untrusted.
		destPath := filepath.Join(destDir, filepath.Base(member.Name))
		if err := extractMember(member, destPath); err != nil {
			return "", err
		}
		return destPath, nil
	}

	return "", eris.Errorf("seed: no spreadsheet found in %s", filepath.Base(zipPath))
}

func extractMember(member *zip.File, destPath string) error {
	src, err := member.Open()
	if err != nil {
		return eris.Wrap(err, "seed: open archive member")
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return eris.Wrap(err, "seed: create extracted file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return eris.Wrap(err, "seed: extract member")
	}
	return nil
}
