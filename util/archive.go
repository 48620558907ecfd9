package util

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// WriteImagesZip 把图片逐个写入 zip，文件名取路径最后一段
// 磁盘上已经不存在的图片跳过，返回实际写入的数量
func WriteImagesZip(w io.Writer, paths []string) (int, error) {
	zw := zip.NewWriter(w)
	written := 0
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if _, dup := seen[name]; dup {
			continue
		}
		err := addFile(zw, p, name)
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("image missing on disk, skipped", zap.String("path", p))
			continue
		}
		if err != nil {
			return written, err
		}
		seen[name] = struct{}{}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("close zip: %w", err)
	}
	return written, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	// jpeg/png 已经压缩过
	hdr.Method = zip.Store

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}
