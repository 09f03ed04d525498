package source

import (
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// s3Source is the S3-backed Source, grounded on aws-sdk-go appearing
// (indirect) in the teacher's go.mod.
type s3Source struct {
	client *s3.S3
	bucket string
	key    string
}

func newS3(uri string) (*s3Source, error) {
	bucket, key, _ := strings.Cut(uri, "/")

	sess, err := session.NewSession(aws.NewConfig())
	if err != nil {
		return nil, errors.Wrap(err, "source: create aws session")
	}
	return &s3Source{client: s3.New(sess), bucket: bucket, key: key}, nil
}

func (s *s3Source) IsRemote() bool { return true }
func (s *s3Source) Path() string   { return "" }

func (s *s3Source) Resolve(subpath string) Source {
	return &s3Source{client: s.client, bucket: s.bucket, key: path.Join(s.key, subpath)}
}

func (s *s3Source) get(key string) ([]byte, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errNotFound
		}
		return nil, errors.Wrapf(err, "source: get s3://%s/%s", s.bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "source: read body s3://%s/%s", s.bucket, key)
	}
	return data, nil
}

func (s *s3Source) GetRoot() ([]byte, error) { return s.get(s.key) }

func (s *s3Source) GetAsString(key string) (string, error) {
	data, err := s.get(path.Join(s.key, key))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *s3Source) Put(key string, data []byte) error {
	uploader := s3manager.NewUploaderWithClient(s.client)
	_, err := uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(s.key, key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errors.Wrapf(err, "source: put s3://%s/%s", s.bucket, path.Join(s.key, key))
	}
	return nil
}
