// Package audit implementa el sink append-only de auditoría sobre archivo.
// Cada entrada es una línea JSON; el archivo nunca se reescribe.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
)

// FileLog es un AuditRepository respaldado por un archivo JSONL.
type FileLog struct {
	path string

	mu   sync.Mutex
	file *os.File
	seq  uint64
}

var _ repository.AuditRepository = (*FileLog)(nil)

// NewFileLog crea un sink sobre path. El archivo se abre perezosamente
// en el primer Append; la secuencia continúa desde la última entrada.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (l *FileLog) openLocked() error {
	if l.file != nil {
		return nil
	}
	entries, err := l.readAllLocked()
	if err != nil {
		return err
	}
	if n := len(entries); n > 0 {
		l.seq = entries[n-1].Seq
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", repository.ErrAuditWrite, l.path, err)
	}
	l.file = f
	return nil
}

// Append escribe la entrada con fsync. Un fallo aquí hace fallar cerrada
// a la mutación que lo disparó: nunca falla en silencio.
func (l *FileLog) Append(ctx context.Context, e repository.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.openLocked(); err != nil {
		return err
	}
	l.seq++
	e.Seq = l.seq
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	b, err := json.Marshal(e)
	if err != nil {
		l.seq--
		return fmt.Errorf("%w: marshal: %v", repository.ErrAuditWrite, err)
	}
	if _, err := l.file.Write(append(b, '\n')); err != nil {
		l.seq--
		return fmt.Errorf("%w: write: %v", repository.ErrAuditWrite, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", repository.ErrAuditWrite, err)
	}
	return nil
}

// Query retorna entradas que cumplen el filtro, más recientes primero
// (timestamp desc, secuencia desc ante empate).
func (l *FileLog) Query(ctx context.Context, f repository.AuditFilter) ([]repository.AuditEntry, error) {
	l.mu.Lock()
	entries, err := l.readAllLocked()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := entries[:0:0]
	for _, e := range entries {
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Seq > out[j].Seq
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Count retorna el total de entradas registradas.
func (l *FileLog) Count(ctx context.Context) (int64, error) {
	l.mu.Lock()
	entries, err := l.readAllLocked()
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

// Close cierra el archivo subyacente.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *FileLog) readAllLocked() ([]repository.AuditEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", repository.ErrStorage, l.path, err)
	}
	defer f.Close()

	var entries []repository.AuditEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e repository.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			// Línea corrupta (ej. crash a mitad de un append sin fsync):
			// se salta, el resto del log sigue siendo legible.
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", repository.ErrStorage, l.path, err)
	}
	return entries, nil
}
