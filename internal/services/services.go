// Package services holds the business rules. Every mutation of an owned
// resource looks the resource up, then consults policy.CanMutate, then
// writes through a repository.
package services

import (
	"context"
	"strings"

	"cardanocart/internal/apperr"
	"cardanocart/pkg/googleauth"
	"cardanocart/pkg/storage"

	"github.com/sirupsen/logrus"
)

// EventPublisher emits domain events. *rabbitmq.Client implements it.
type EventPublisher interface {
	Publish(routingKey string, payload interface{}) error
}

// IdentityVerifier turns a raw federated credential into a verified assertion.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*googleauth.Assertion, error)
}

// ImageUpload is an uploaded file that already passed boundary validation.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// publishEvent never fails the caller: the write it reports has already committed.
func publishEvent(events EventPublisher, routingKey string, payload interface{}) {
	if events == nil {
		return
	}
	if err := events.Publish(routingKey, payload); err != nil {
		logrus.WithError(err).WithField("event", routingKey).Warn("Failed to publish event")
	}
}

// storeUploads writes each upload under folder in order. Keys already
// written are appended to stored so the caller can discard them.
func storeUploads(ctx context.Context, blobs storage.Store, folder string, uploads []ImageUpload, stored *[]string) ([]string, []string, error) {
	if len(uploads) == 0 {
		return nil, nil, nil
	}
	if blobs == nil {
		return nil, nil, apperr.Internal(errBlobStoreMissing)
	}

	keys := make([]string, 0, len(uploads))
	urls := make([]string, 0, len(uploads))
	for _, up := range uploads {
		key := storage.ObjectKey(folder, up.Filename)
		url, err := blobs.Put(ctx, key, up.ContentType, up.Data)
		if err != nil {
			return nil, nil, err
		}
		*stored = append(*stored, key)
		keys = append(keys, key)
		urls = append(urls, url)
	}
	return keys, urls, nil
}

// discardBlobs deletes blobs whose database rows were rolled back.
func discardBlobs(blobs storage.Store, keys []string) {
	if blobs == nil {
		return
	}
	for _, key := range keys {
		if err := blobs.Delete(context.Background(), key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to delete orphaned blob")
		}
	}
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
