package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// ObjectStore keeps snapshots in a NATS JetStream object store bucket. Object
// names are slash separated paths, "UBS_991/bib991_01.xml", so several
// processes can share one snapshot tree.
type ObjectStore struct {
	conn   *nats.Conn
	store  nats.ObjectStore
	logger alma.Logger
	owned  bool
}

// NewObjectStore binds to bucket on nc, creating the bucket when missing.
func NewObjectStore(nc *nats.Conn, bucket string, logger alma.Logger) (*ObjectStore, error) {
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	if logger == nil {
		logger = alma.NopLogger{}
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("getting JetStream context: %w", err)
	}

	store, err := js.ObjectStore(bucket)
	if errors.Is(err, nats.ErrStreamNotFound) || errors.Is(err, nats.ErrBucketNotFound) {
		store, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "alma record snapshots",
		})
	}

	if err != nil {
		return nil, fmt.Errorf("opening object store %s: %w", bucket, err)
	}

	return &ObjectStore{conn: nc, store: store, logger: logger}, nil
}

// ConnectObjectStore dials url and binds to bucket. Close releases the connection.
func ConnectObjectStore(url, bucket string, logger alma.Logger) (*ObjectStore, error) {
	if url == "" {
		return nil, constants.ErrNATSURLRequired
	}

	nc, err := nats.Connect(url, nats.Name(constants.DefaultUserAgent))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	store, err := NewObjectStore(nc, bucket, logger)
	if err != nil {
		nc.Close()

		return nil, err
	}

	store.owned = true

	return store, nil
}

// Close drains the connection when the store dialed it.
func (s *ObjectStore) Close() error {
	if !s.owned {
		return nil
	}

	err := s.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}

// Save stores p as the next version of basePath.
func (s *ObjectStore) Save(_ context.Context, p alma.Payload, basePath string) (string, error) {
	dir, base := path.Split(path.Clean(basePath))
	dir = objectDir(dir)

	names, err := s.names(dir)
	if err != nil {
		return "", err
	}

	name, err := versionedName(names, base)
	if err != nil {
		return "", err
	}

	objectName := dir + name

	_, err = s.store.PutBytes(objectName, []byte(p.String()))
	if err != nil {
		return "", fmt.Errorf("putting snapshot object: %w", err)
	}

	s.logger.Info("record saved", map[string]interface{}{"object": objectName})

	return objectName, nil
}

// Latest loads the last object of dir whose name starts with prefix.
func (s *ObjectStore) Latest(_ context.Context, dir, prefix string) (alma.Payload, error) {
	dir = objectDir(dir)

	names, err := s.names(dir)
	if err != nil {
		return nil, err
	}

	name, ok := latestName(names, prefix)
	if !ok {
		s.logger.Warn("no snapshot found", map[string]interface{}{"dir": dir, "prefix": prefix})

		return nil, fmt.Errorf("%w: %s%s*", alma.ErrSnapshotNotFound, dir, prefix)
	}

	data, err := s.store.GetBytes(dir + name)
	if err != nil {
		return nil, fmt.Errorf("getting snapshot object: %w", err)
	}

	return parseSnapshot(name, data)
}

// names lists the objects directly below dir ("a/b/"), without the dir part.
func (s *ObjectStore) names(dir string) ([]string, error) {
	infos, err := s.store.List()
	if errors.Is(err, nats.ErrNoObjectsFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("listing snapshot objects: %w", err)
	}

	names := make([]string, 0, len(infos))

	for _, info := range infos {
		rest, found := strings.CutPrefix(info.Name, dir)
		if found && rest != "" && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}

	return names, nil
}

// objectDir normalizes dir to "" or "a/b/".
func objectDir(dir string) string {
	cleaned := path.Clean(dir)
	if cleaned == "." || cleaned == "/" {
		return ""
	}

	return strings.TrimPrefix(cleaned, "/") + "/"
}
