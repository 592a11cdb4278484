package storage

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/spacemmo/internal/entity"
	"github.com/annel0/spacemmo/internal/logging"
)

const (
	snapshotPrefix = "snapshot:"
	latestKey      = "snapshot-latest"
)

// ErrSnapshotNotFound возвращается при запросе несуществующего снимка
var ErrSnapshotNotFound = errors.New("снимок мира не найден")

// SnapshotStore хранилище снимков состояния мира. Снимок сериализуется
// целиком через gob, сжимается zstd и сохраняется в BadgerDB под
// уникальным идентификатором
type SnapshotStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewSnapshotStore открывает хранилище снимков в указанной директории
func NewSnapshotStore(dataPath string) (*SnapshotStore, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd-компрессор: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd-декомпрессор: %w", err)
	}

	return &SnapshotStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Close закрывает хранилище снимков
func (ss *SnapshotStore) Close() error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	if !ss.isReady {
		return nil
	}

	ss.isReady = false
	ss.encoder.Close()
	ss.decoder.Close()
	return ss.db.Close()
}

// SaveSnapshot сохраняет снимок мира и возвращает его идентификатор.
// Последний сохранённый снимок становится снимком по умолчанию
func (ss *SnapshotStore) SaveSnapshot(snapshot *entity.WorldSnapshot) (string, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return "", fmt.Errorf("хранилище не готово")
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(snapshot); err != nil {
		return "", fmt.Errorf("ошибка сериализации снимка: %w", err)
	}

	compressed := ss.encoder.EncodeAll(raw.Bytes(), nil)
	id := uuid.New().String()

	err := ss.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(snapshotPrefix+id), compressed); err != nil {
			return err
		}
		return txn.Set([]byte(latestKey), []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("ошибка сохранения снимка в BadgerDB: %w", err)
	}

	logging.Debug("Снимок мира сохранён: id=%s, %d байт (%d до сжатия)",
		id, len(compressed), raw.Len())

	return id, nil
}

// LoadSnapshot загружает снимок мира по идентификатору
func (ss *SnapshotStore) LoadSnapshot(id string) (*entity.WorldSnapshot, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var compressed []byte
	err := ss.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			compressed = append([]byte{}, val...)
			return nil
		})
	})

	if err == badger.ErrKeyNotFound {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка из BadgerDB: %w", err)
	}

	raw, err := ss.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки снимка: %w", err)
	}

	var snapshot entity.WorldSnapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("ошибка десериализации снимка: %w", err)
	}

	return &snapshot, nil
}

// LoadLatest загружает последний сохранённый снимок мира.
// Возвращает ErrSnapshotNotFound, если снимков ещё нет
func (ss *SnapshotStore) LoadLatest() (*entity.WorldSnapshot, error) {
	ss.mutex.RLock()

	if !ss.isReady {
		ss.mutex.RUnlock()
		return nil, fmt.Errorf("хранилище не готово")
	}

	var id []byte
	err := ss.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = append([]byte{}, val...)
			return nil
		})
	})
	ss.mutex.RUnlock()

	if err == badger.ErrKeyNotFound {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения указателя на снимок: %w", err)
	}

	return ss.LoadSnapshot(string(id))
}

// ListSnapshots возвращает идентификаторы всех сохранённых снимков
func (ss *SnapshotStore) ListSnapshots() ([]string, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var ids []string
	err := ss.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(snapshotPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, snapshotPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления снимков: %w", err)
	}

	return ids, nil
}

// DeleteSnapshot удаляет снимок по идентификатору
func (ss *SnapshotStore) DeleteSnapshot(id string) error {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	err := ss.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(snapshotPrefix + id))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления снимка: %w", err)
	}

	return nil
}
