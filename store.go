package inheritchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/EnzoRoselli/InheritChain/rawdb"
	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/crypto"
)

// Store keeps pinned content (deed metadata, heir documents) in a key-value
// backend, addressed by the keccak256 digest of the payload. Reads go through
// an in-process cache because digests are immutable.
type Store struct {
	KVDb    rawdb.KeyValueDB
	cache   *bigcache.BigCache
	gateway string
}

func NewStore(db rawdb.KeyValueDB, gateway string) (*Store, error) {
	cacheConfig := bigcache.DefaultConfig(10 * time.Minute)
	cacheConfig.HardMaxCacheSize = 256 // MB
	bc, err := bigcache.New(context.Background(), cacheConfig)
	if err != nil {
		return nil, err
	}
	return &Store{
		KVDb:    db,
		cache:   bc,
		gateway: strings.TrimRight(gateway, "/"),
	}, nil
}

func (s *Store) Close() error {
	if err := s.cache.Close(); err != nil {
		log.Warn("close pin cache", "err", err)
	}
	return s.KVDb.Close()
}

// Digest is the content address for a payload.
func Digest(data []byte) string {
	return fmt.Sprintf("0x%x", crypto.Keccak256(data))
}

// PinData stores a payload and its metadata, returning the digest. Pinning
// the same bytes twice is a no-op with the same address.
func (s *Store) PinData(data []byte, contentType, uploader string) (string, error) {
	digest := Digest(data)
	if s.KVDb.Exist(schema.PinMetaBucket, digest) {
		return digest, nil
	}
	if err := s.KVDb.Put(schema.PinDataBucket, digest, data); err != nil {
		return "", err
	}
	meta := schema.PinMeta{
		Digest:      digest,
		ContentType: contentType,
		Size:        int64(len(data)),
		Uploader:    uploader,
		CreatedAt:   time.Now().Unix(),
	}
	metaBytes, err := json.Marshal(&meta)
	if err != nil {
		return "", err
	}
	if err := s.KVDb.Put(schema.PinMetaBucket, digest, metaBytes); err != nil {
		return "", err
	}
	return digest, nil
}

// PinJSON marshals v and pins the result as application/json.
func (s *Store) PinJSON(v interface{}, uploader string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return s.PinData(data, "application/json", uploader)
}

func (s *Store) GetData(digest string) ([]byte, error) {
	if data, err := s.cache.Get(digest); err == nil {
		return data, nil
	}
	data, err := s.KVDb.Get(schema.PinDataBucket, digest)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(digest, data); err != nil {
		log.Warn("cache pin data", "digest", digest, "err", err)
	}
	return data, nil
}

func (s *Store) GetMeta(digest string) (*schema.PinMeta, error) {
	data, err := s.KVDb.Get(schema.PinMetaBucket, digest)
	if err != nil {
		return nil, err
	}
	meta := &schema.PinMeta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *Store) Exist(digest string) bool {
	return s.KVDb.Exist(schema.PinMetaBucket, digest)
}

func (s *Store) AllDigests() ([]string, error) {
	return s.KVDb.GetAllKey(schema.PinMetaBucket)
}

// GatewayURL builds the public fetch URL for a pinned digest.
func (s *Store) GatewayURL(digest string) string {
	if s.gateway == "" {
		return digest
	}
	return s.gateway + "/" + digest
}
