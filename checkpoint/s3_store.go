/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store persists checkpoints as objects under a bucket/prefix, mirroring
// storage.S3Storage's config-loading and ensureOpen lazy-client pattern.
type S3Store struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func (s *S3Store) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}

	ctx := context.Background()
	var opts []func(*awsconfig.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.Region))
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("checkpoint: loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.Endpoint) })
	}
	if s.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	s.client = s3.NewFromConfig(cfg, s3Opts...)
	s.opened = true
	return nil
}

func (s *S3Store) key(name string) string {
	pfx := strings.TrimSuffix(s.Prefix, "/")
	if pfx == "" {
		return name + ".cp"
	}
	return pfx + "/" + name + ".cp"
}

// listPrefix is the key prefix shared by every checkpoint object, used to
// scope ListCheckpoints without appending a bogus ".cp" suffix.
func (s *S3Store) listPrefix() string {
	pfx := strings.TrimSuffix(s.Prefix, "/")
	if pfx == "" {
		return ""
	}
	return pfx + "/"
}

func (s *S3Store) WriteCheckpoint(name string, blob []byte) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(blob),
	})
	if err != nil {
		return fmt.Errorf("checkpoint: put %q: %w", s.key(name), err)
	}
	return nil
}

func (s *S3Store) ReadCheckpoint(name string) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: get %q: %w", s.key(name), err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading body of %q: %w", s.key(name), err)
	}
	return data, nil
}

func (s *S3Store) RemoveCheckpoint(name string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("checkpoint: delete %q: %w", s.key(name), err)
	}
	return nil
}

func (s *S3Store) ListCheckpoints() ([]string, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	prefix := s.listPrefix()
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	})
	var out []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("checkpoint: listing %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, prefix)
			name = strings.TrimSuffix(name, ".cp")
			out = append(out, name)
		}
	}
	return out, nil
}
