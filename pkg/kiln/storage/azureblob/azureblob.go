// Package azureblob is an Azure Blob Storage implementation of the
// kiln.FileStore interface. Upload and download URLs are minted as SAS
// links, which requires a shared key credential.
package azureblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/kilnhq/kiln/pkg/kiln"
)

// Config options for the Azure Blob backend
type Config struct {
	AccountName string // Storage account name
	AccountKey  string // Shared key for the account
	Container   string // Blob container name
	Endpoint    string // Optional endpoint override (Azurite, sovereign clouds)
}

// Backend is an Azure Blob implementation of the kiln.FileStore interface
type Backend struct {
	client    *azblob.Client
	container string
}

// New creates a new Azure Blob storage backend
func New(config Config) (kiln.FileStore, error) {
	if config.AccountName == "" || config.AccountKey == "" {
		return nil, errors.New("account name and key are required")
	}
	if config.Container == "" {
		return nil, errors.New("container name is required")
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", config.AccountName)
	}

	cred, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build shared key credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &Backend{client: client, container: config.Container}, nil
}

func (b *Backend) blobClient(objectKey string) *blob.Client {
	return b.client.ServiceClient().NewContainerClient(b.container).NewBlobClient(objectKey)
}

// GetUploadURL returns a write SAS URL the client can PUT the blob to.
func (b *Backend) GetUploadURL(ctx context.Context, objectKey string, expiresIn time.Duration) (string, error) {
	url, err := b.blobClient(objectKey).GetSASURL(
		sas.BlobPermissions{Create: true, Write: true},
		time.Now().UTC().Add(expiresIn),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate upload SAS URL: %w", err)
	}
	return url, nil
}

// Upload streams the blob through the server.
func (b *Backend) Upload(ctx context.Context, objectKey string, contentType string, reader io.Reader) error {
	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if _, err := b.client.UploadStream(ctx, b.container, objectKey, reader, opts); err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	return nil
}

// GetDownloadURL returns a fresh read SAS URL. The download filename is
// ignored: the blob serves under its stored content headers.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string, expiresIn time.Duration) (string, error) {
	url, err := b.blobClient(objectKey).GetSASURL(
		sas.BlobPermissions{Read: true},
		time.Now().UTC().Add(expiresIn),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download SAS URL: %w", err)
	}
	return url, nil
}

// Download reads the blob back.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	resp, err := b.client.DownloadStream(ctx, b.container, objectKey, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("object %q: %w", objectKey, kiln.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return resp.Body, nil
}

// Delete removes the blob. A missing blob is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	if _, err := b.client.DeleteBlob(ctx, b.container, objectKey, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Exists reports whether the blob is present.
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	if _, err := b.blobClient(objectKey).GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blob: %w", err)
	}
	return true, nil
}
