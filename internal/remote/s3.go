package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// metaName — ключ метаданных объекта с исходным именем файла.
const metaName = "filename"

// S3Config — конфигурация S3-хранилища.
type S3Config struct {
	// Bucket — имя бакета (обязательно).
	Bucket string `yaml:"bucket"`

	// Prefix — префикс ключей внутри бакета.
	Prefix string `yaml:"prefix"`

	// Region — регион AWS.
	Region string `yaml:"region"`

	// Endpoint — адрес S3-совместимого провайдера (MinIO, R2).
	Endpoint string `yaml:"endpoint"`

	// UsePathStyle — адресация bucket в пути, а не в поддомене.
	UsePathStyle bool `yaml:"use_path_style"`
}

// S3 — Client поверх S3-совместимого хранилища.
//
// Каждое сообщение — отдельный объект <prefix>/messages/<id>.
// ID выдаются монотонно, начиная с текущего времени в микросекундах,
// поэтому не пересекаются между рестартами.
type S3 struct {
	cfg   S3Config
	creds Credentials

	client   *s3.Client
	provider aws.CredentialsProvider
	nextID   int64
}

// NewS3 создаёт клиент. Сеть не трогается до Connect.
func NewS3(cfg S3Config, creds Credentials) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	return &S3{cfg: cfg, creds: creds}, nil
}

// Connect загружает конфигурацию AWS и проверяет учётные данные.
func (c *S3) Connect(ctx context.Context) error {
	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.creds.AccessKeyID,
			c.creds.SecretAccessKey,
			c.creds.SessionToken,
		)),
	}
	if c.cfg.Region != "" {
		opts = append(opts, config.WithRegion(c.cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if c.cfg.Endpoint != "" {
		endpoint := c.cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if c.cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	c.client = s3.NewFromConfig(awsCfg, s3Opts...)
	c.provider = awsCfg.Credentials
	c.nextID = time.Now().UnixMicro()
	return nil
}

// Authorized проверяет доступ к бакету через HeadBucket.
func (c *S3) Authorized(ctx context.Context) (bool, error) {
	if c.client == nil {
		return false, ErrNotConnected
	}

	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.cfg.Bucket),
	})
	if err == nil {
		return true, nil
	}
	if isAuthError(err) {
		return false, nil
	}
	return false, fmt.Errorf("head bucket: %w", err)
}

// Send загружает файл как новый объект.
func (c *S3) Send(ctx context.Context, filePath string, progress ProgressFunc) (*Message, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	c.nextID++
	id := c.nextID
	name := filepath.Base(filePath)

	body := &progressReader{f: f, total: info.Size(), fn: progress}
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.Bucket),
		Key:           aws.String(c.key(id)),
		Body:          body,
		ContentLength: aws.Int64(info.Size()),
		Metadata:      map[string]string{metaName: name},
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", mapError(err))
	}

	return &Message{
		ID:       id,
		Location: c.cfg.Bucket + "/" + c.key(id),
		Name:     name,
		Size:     info.Size(),
	}, nil
}

// Lookup возвращает метаданные объекта.
func (c *S3) Lookup(ctx context.Context, id int64) (*Message, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(c.key(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("head object %d: %w", id, mapError(err))
	}

	return &Message{
		ID:       id,
		Location: c.cfg.Bucket + "/" + c.key(id),
		Name:     out.Metadata[metaName],
		Size:     aws.ToInt64(out.ContentLength),
	}, nil
}

// Download копирует тело объекта в w.
func (c *S3) Download(ctx context.Context, msg *Message, w io.Writer) error {
	if c.client == nil {
		return ErrNotConnected
	}
	if w == nil {
		return ErrNilSink
	}

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(c.key(msg.ID)),
	})
	if err != nil {
		return fmt.Errorf("get object %d: %w", msg.ID, mapError(err))
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("read object %d: %w", msg.ID, err)
	}
	return nil
}

// Delete удаляет объекты одним запросом DeleteObjects.
func (c *S3) Delete(ctx context.Context, ids []int64) error {
	if c.client == nil {
		return ErrNotConnected
	}
	if len(ids) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, len(ids))
	for i, id := range ids {
		objects[i] = types.ObjectIdentifier{Key: aws.String(c.key(id))}
	}

	out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.cfg.Bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", mapError(err))
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("delete %s: %s", aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

// SessionToken возвращает токен текущих учётных данных.
func (c *S3) SessionToken(ctx context.Context) (string, error) {
	if c.provider == nil {
		return "", ErrNotConnected
	}
	creds, err := c.provider.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("retrieve credentials: %w", err)
	}
	return creds.SessionToken, nil
}

// Close освобождает клиент.
func (c *S3) Close() error {
	c.client = nil
	c.provider = nil
	return nil
}

func (c *S3) key(id int64) string {
	return path.Join(c.cfg.Prefix, "messages", strconv.FormatInt(id, 10))
}

// mapError приводит ошибки S3 к ошибкам пакета.
func mapError(err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if isAuthError(err) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}

func isAuthError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "Forbidden", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return true
	default:
		return false
	}
}

// progressReader считает прочитанные байты и сообщает прогресс.
// Seek нужен SDK для подсчёта контрольной суммы тела.
type progressReader struct {
	f     *os.File
	read  int64
	total int64
	fn    ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	r.read += int64(n)
	if n > 0 && r.fn != nil {
		r.fn(r.read, r.total)
	}
	return n, err
}

func (r *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.f.Seek(offset, whence)
	if err == nil {
		r.read = pos
	}
	return pos, err
}
