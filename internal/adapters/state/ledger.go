// Package state implementa el ledger diario en JSON. Es la única fuente de
// verdad para idempotencia y exposición: se carga al construir y se
// reescribe completo en cada Record, antes de confirmar la orden.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// ledgerOrder es el registro persistido: la orden más su timestamp unix.
type ledgerOrder struct {
	domain.PlacedOrder
	TS int64 `json:"ts"`
}

type dayBucket struct {
	SubmittedIDs []string      `json:"submitted_ids"`
	Orders       []ledgerOrder `json:"orders"`
}

type ledgerFile struct {
	ByDate map[string]*dayBucket `json:"by_date"`
}

// Ledger guarda el estado del autotrader en un archivo JSON. Los caps se
// fijan al construir y no cambian durante la vida del proceso.
type Ledger struct {
	mu   sync.Mutex
	path string
	data ledgerFile

	maxDaily     float64
	maxPerMarket float64
}

// Load lee el ledger del disco, o arranca vacío si el archivo no existe.
// Un archivo corrupto es un error: mejor parar que duplicar órdenes.
func Load(path string, maxDaily, maxPerMarket float64) (*Ledger, error) {
	l := &Ledger{
		path:         path,
		data:         ledgerFile{ByDate: make(map[string]*dayBucket)},
		maxDaily:     maxDaily,
		maxPerMarket: maxPerMarket,
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state.Load: %w", err)
	}
	if err := json.Unmarshal(raw, &l.data); err != nil {
		return nil, fmt.Errorf("state.Load: parse %s: %w", path, err)
	}
	if l.data.ByDate == nil {
		l.data.ByDate = make(map[string]*dayBucket)
	}
	return l, nil
}

// SubmittedIDs devuelve los client order ids ya registrados para la fecha.
func (l *Ledger) SubmittedIDs(dateKey string) map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make(map[string]bool)
	if bucket, ok := l.data.ByDate[dateKey]; ok {
		for _, id := range bucket.SubmittedIDs {
			ids[id] = true
		}
	}
	return ids
}

// DailyNotional suma el notional de todas las órdenes del día.
func (l *Ledger) DailyNotional(dateKey string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dailyNotionalLocked(dateKey)
}

func (l *Ledger) dailyNotionalLocked(dateKey string) float64 {
	var total float64
	if bucket, ok := l.data.ByDate[dateKey]; ok {
		for _, o := range bucket.Orders {
			total += o.Notional
		}
	}
	return total
}

// MarketNotional suma el notional del día para un ticker.
func (l *Ledger) MarketNotional(dateKey, ticker string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.marketNotionalLocked(dateKey, ticker)
}

func (l *Ledger) marketNotionalLocked(dateKey, ticker string) float64 {
	var total float64
	if bucket, ok := l.data.ByDate[dateKey]; ok {
		for _, o := range bucket.Orders {
			if o.Ticker == ticker {
				total += o.Notional
			}
		}
	}
	return total
}

// Admit verifica que sumar notional no rompa el cap diario ni el del
// mercado. Los caps son hard stops, nunca se recorta la orden para caber.
func (l *Ledger) Admit(dateKey, ticker string, notional float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dailyNotionalLocked(dateKey)+notional > l.maxDaily {
		return false
	}
	if l.marketNotionalLocked(dateKey, ticker)+notional > l.maxPerMarket {
		return false
	}
	return true
}

// Record agrega la orden al bucket del día y persiste el ledger completo.
// Si el write falla, el estado en memoria se revierte: una orden que no
// quedó en disco no cuenta como registrada.
func (l *Ledger) Record(dateKey string, order domain.PlacedOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.data.ByDate[dateKey]
	if !ok {
		bucket = &dayBucket{}
		l.data.ByDate[dateKey] = bucket
	}

	prevIDs := len(bucket.SubmittedIDs)
	prevOrders := len(bucket.Orders)

	bucket.SubmittedIDs = append(bucket.SubmittedIDs, order.ClientOrderID)
	bucket.Orders = append(bucket.Orders, ledgerOrder{PlacedOrder: order, TS: order.PlacedAt.Unix()})

	if err := l.flushLocked(); err != nil {
		bucket.SubmittedIDs = bucket.SubmittedIDs[:prevIDs]
		bucket.Orders = bucket.Orders[:prevOrders]
		return fmt.Errorf("state.Record: %w", err)
	}
	return nil
}

// flushLocked escribe el archivo completo via tmp + rename.
func (l *Ledger) flushLocked() error {
	raw, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
