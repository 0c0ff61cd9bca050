// Package drive pulls sales and forecast sheets from Google Drive folders.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

type Service struct {
	srv *drive.Service
}

// NewService builds a read-only Drive client from service account credentials.
func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	if strings.TrimSpace(credentialsJSON) == "" {
		return nil, fmt.Errorf("drive credentials are not configured")
	}

	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// ListFiles returns the non-trashed files directly under folderID, oldest
// modification first so that later exports are applied last.
func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "" {
		folderID = "root"
	}

	var files []*File
	call := s.srv.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("'%s' in parents and trashed=false and mimeType!='%s'", folderID, folderMimeType)).
		Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size)").
		OrderBy("modifiedTime")

	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			files = append(files, &File{
				ID:           f.Id,
				Name:         f.Name,
				MimeType:     f.MimeType,
				ModifiedTime: f.ModifiedTime,
				Size:         f.Size,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list files in %s: %w", folderID, err)
	}

	return files, nil
}

func (s *Service) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// FindFolderByPath resolves a slash separated folder path starting at root.
func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	currentID := "root"
	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Context(ctx).
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, strings.ReplaceAll(folder, "'", `\'`), folderMimeType)).
			Fields("files(id, name)").
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}
		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}
