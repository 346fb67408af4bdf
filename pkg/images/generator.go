// Package images generates, finds and stores article images.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResult is returned when a provider answers without a URL.
var ErrEmptyResult = errors.New("image provider returned no url")

// Request describes one image.
type Request struct {
	Prompt  string
	Query   string // short search phrase for stock providers
	Size    string
	Style   string
	Quality string
}

// Generator produces an image URL for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Chain tries generators in order until one returns a URL.
type Chain []Generator

// Generate implements Generator.
func (c Chain) Generate(ctx context.Context, req Request) (string, error) {
	if len(c) == 0 {
		return "", fmt.Errorf("no image generators configured")
	}
	var errs []string
	for _, g := range c {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		url, err := g.Generate(ctx, req)
		if err == nil && strings.TrimSpace(url) != "" {
			return url, nil
		}
		if err == nil {
			err = ErrEmptyResult
		}
		errs = append(errs, fmt.Sprintf("%s: %v", g.Name(), err))
	}
	return "", fmt.Errorf("all image generators failed: %s", strings.Join(errs, "; "))
}

// Name implements Generator.
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, g := range c {
		names[i] = g.Name()
	}
	return strings.Join(names, ">")
}
