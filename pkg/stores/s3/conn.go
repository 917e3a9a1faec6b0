package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

/*
Conn wraps a minio client with the few object operations the task store
needs.
*/
type Conn struct {
	client *minio.Client
}

/*
NewConn dials an S3-compatible endpoint.
*/
func NewConn(endpoint, accessKey, secretKey string, secure bool) (*Conn, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	return &Conn{client: client}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (conn *Conn) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := conn.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if !exists {
		return conn.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}

	return nil
}

func (conn *Conn) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := conn.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (conn *Conn) Put(ctx context.Context, bucket, key string, body io.Reader, size int64) error {
	_, err := conn.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}
