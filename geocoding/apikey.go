// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// APIKeySource tells ResolveAPIKey where to look.
type APIKeySource struct {
	// Key is used as is when set (config or GOOGLE_MAPS_API_KEY).
	Key string
	// ProjectID overrides the project found in the default credentials.
	ProjectID string
	// DisplayName is the API Keys resource holding the geocoding key.
	DisplayName string
}

// ResolveAPIKey returns src.Key or, when empty, fetches the key through
// Application Default Credentials.
func ResolveAPIKey(ctx context.Context, src APIKeySource, logger *zap.Logger) (string, error) {
	if src.Key != "" {
		return src.Key, nil
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("google maps api key not set, attempting to retrieve via ADC")

	key, err := apiKeyFromADC(ctx, src, logger)
	if err != nil {
		return "", err
	}

	logger.Info("retrieved google maps api key via ADC")

	return key, nil
}

func apiKeyFromADC(ctx context.Context, src APIKeySource, logger *zap.Logger) (string, error) {
	if src.DisplayName == "" {
		return "", errors.New("no api key display name configured")
	}

	// 1. Get Project ID from ADC
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := src.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}

	if projectID == "" {
		return "", errors.New("no project id in credentials or configuration")
	}

	// 2. Create API Keys client
	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	// 3. List keys to find the one with the expected display name
	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != src.DisplayName {
			continue
		}

		// ListKeys and GetKey redact the KeyString.
		logger.Debug("found key resource, retrieving secret", zap.String("name", key.Name))

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but KeyString is empty", src.DisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", src.DisplayName, projectID)
}
