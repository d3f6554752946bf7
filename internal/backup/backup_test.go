package backup

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pthomsen/chorecraft/internal/database"
	"github.com/pthomsen/chorecraft/internal/model"
	"github.com/pthomsen/chorecraft/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testManager(t *testing.T, keep int) (*Manager, *mockS3Client, *store.BackupStore) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	backups := store.NewBackupStore(db)
	m := NewManager(Config{
		S3:   S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Keep: keep,
	}, db, backups, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock := newMockS3()
	m.client = mock
	return m, mock, backups
}

func TestManagerDisabledWithoutCredentials(t *testing.T) {
	m := NewManager(Config{}, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("expected error from RunNow on disabled manager")
	}

	// Start on a disabled manager is a no-op; Stop must not hang.
	m.Start(context.Background())
	m.Stop()
}

func TestRunNowUploadsSnapshot(t *testing.T) {
	m, mock, backups := testManager(t, 30)

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	record, err := backups.GetByID(id)
	if err != nil {
		t.Fatalf("get backup: %v", err)
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", record.Status, model.BackupStatusCompleted)
	}
	if record.SizeBytes == 0 {
		t.Error("expected non-zero snapshot size")
	}

	mock.mu.Lock()
	data, ok := mock.objects[record.S3Key]
	mock.mu.Unlock()
	if !ok {
		t.Fatalf("object %q not uploaded", record.S3Key)
	}
	if int64(len(data)) != record.SizeBytes {
		t.Errorf("uploaded %d bytes, record says %d", len(data), record.SizeBytes)
	}

	if m.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m.Status().State, StateIdle)
	}
	if m.Status().LastBackup == nil {
		t.Error("expected LastBackup to be set")
	}
}

func TestRunNowRecordsFailure(t *testing.T) {
	m, mock, backups := testManager(t, 30)
	mock.putErr = io.ErrUnexpectedEOF

	id, err := m.RunNow(context.Background())
	if err == nil {
		t.Fatal("expected upload error")
	}
	if id != 0 {
		t.Errorf("id = %d, want 0", id)
	}

	list, err := backups.List(10)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("records = %d, want 1", len(list))
	}
	if list[0].Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", list[0].Status, model.BackupStatusFailed)
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	m, mock, backups := testManager(t, 2)

	clock := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := m.RunNow(context.Background())
		if err != nil {
			t.Fatalf("run backup %d: %v", i, err)
		}
		ids = append(ids, id)
		clock = clock.Add(time.Hour)
	}

	if err := m.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	oldest, err := backups.GetByID(ids[0])
	if err != nil {
		t.Fatalf("get backup: %v", err)
	}
	if oldest != nil {
		t.Error("oldest backup record should be deleted")
	}

	mock.mu.Lock()
	remaining := len(mock.objects)
	mock.mu.Unlock()
	if remaining != 2 {
		t.Errorf("objects remaining = %d, want 2", remaining)
	}

	for _, id := range ids[1:] {
		b, err := backups.GetByID(id)
		if err != nil {
			t.Fatalf("get backup: %v", err)
		}
		if b == nil {
			t.Errorf("backup %d should be retained", id)
		}
	}
}

func TestStopSafety(t *testing.T) {
	m, _, _ := testManager(t, 30)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	m.Stop()

	// Stop again must not panic or hang.
	m.Stop()
}
