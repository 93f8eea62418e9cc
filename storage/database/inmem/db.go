package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/payment"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
)

type (
	// DB is an in-memory store. Transactions are serialized and rolled back by restoring a snapshot,
	// so writes made outside of a transaction while one is running may be lost on rollback.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex

		pkCount       int64
		sessions      map[int64]session.Session
		students      map[int64]student.Student
		fees          map[int64]fee.Fee
		payments      map[int64]payment.Payment
		notifications map[int64]fee.Notification
	}

	snapshot struct {
		pkCount       int64
		sessions      map[int64]session.Session
		students      map[int64]student.Student
		fees          map[int64]fee.Fee
		payments      map[int64]payment.Payment
		notifications map[int64]fee.Notification
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{
		sessions:      make(map[int64]session.Session),
		students:      make(map[int64]student.Student),
		fees:          make(map[int64]fee.Fee),
		payments:      make(map[int64]payment.Payment),
		notifications: make(map[int64]fee.Notification),
	}
}

func (db *DB) nextPK() int64 {
	db.pkCount++
	return db.pkCount
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()

	snap := snapshot{
		pkCount:       db.pkCount,
		sessions:      make(map[int64]session.Session, len(db.sessions)),
		students:      make(map[int64]student.Student, len(db.students)),
		fees:          make(map[int64]fee.Fee, len(db.fees)),
		payments:      make(map[int64]payment.Payment, len(db.payments)),
		notifications: make(map[int64]fee.Notification, len(db.notifications)),
	}
	for k, v := range db.sessions {
		snap.sessions[k] = v
	}
	for k, v := range db.students {
		snap.students[k] = v
	}
	for k, v := range db.fees {
		snap.fees[k] = v
	}
	for k, v := range db.payments {
		snap.payments[k] = v
	}
	for k, v := range db.notifications {
		snap.notifications[k] = v
	}
	return snap
}

func (db *DB) restore(snap snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.pkCount = snap.pkCount
	db.sessions = snap.sessions
	db.students = snap.students
	db.fees = snap.fees
	db.payments = snap.payments
	db.notifications = snap.notifications
}

// RunInTx runs fn in a serialized transaction. Changes made by fn are discarded when it fails.
// fn receives a nil executor: the in-memory repositories ignore it.
func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := db.snapshot()
	if err := fn(nil); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

// InsertStudent adds a student to the directory. The student directory is read-only for the
// rest of the app, this is meant for fixtures.
func (db *DB) InsertStudent(s student.Student) student.Student {
	db.mu.Lock()
	defer db.mu.Unlock()

	s.ID = db.nextPK()
	db.students[s.ID] = s
	return s
}
