package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearth-club/levelbot/internal/curve"
	"github.com/hearth-club/levelbot/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// Each sqlite :memory: connection is its own database, so pin the
	// pool to a single connection. This also serializes writers the way
	// a file-backed deployment does.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to auto migrate: %v", err)
	}
	return db
}

func testCurve() curve.Curve {
	return curve.New(100, 1.5, 100, 9_000_000_000_000_000_000)
}

// newTestStore returns a store whose attendance day is the fixed string
// pointed at by day, so tests can roll the day without touching a clock.
func newTestStore(t *testing.T, day *string) *Store {
	t.Helper()
	return New(openTestDB(t), testCurve(), func(time.Time) string { return *day })
}

func TestCreateIfAbsent(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)

	if err := s.CreateIfAbsent("u1", "g1"); err != nil {
		t.Fatalf("CreateIfAbsent returned error: %v", err)
	}

	// Bump XP so a second create would be observable if it overwrote.
	if err := s.AdjustXP("u1", "g1", 120); err != nil {
		t.Fatalf("AdjustXP returned error: %v", err)
	}

	if err := s.CreateIfAbsent("u1", "g1"); err != nil {
		t.Fatalf("second CreateIfAbsent returned error: %v", err)
	}

	user, err := s.Get("u1", "g1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if user.XP != 120 {
		t.Errorf("expected XP 120 after re-create, got %d", user.XP)
	}
	if user.Level != 2 {
		t.Errorf("expected level 2, got %d", user.Level)
	}
}

func TestGetNotFound(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)

	if _, err := s.Get("nobody", "g1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustXP(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)
	s.CreateIfAbsent("u1", "g1")

	t.Run("MissingRecord", func(t *testing.T) {
		if err := s.AdjustXP("ghost", "g1", 10); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ClampsBelowZero", func(t *testing.T) {
		if err := s.AdjustXP("u1", "g1", -1_000_000); err != nil {
			t.Fatalf("AdjustXP returned error: %v", err)
		}
		user, _ := s.Get("u1", "g1")
		if user.XP != 0 || user.Level != 1 {
			t.Errorf("expected (xp=0, level=1), got (xp=%d, level=%d)", user.XP, user.Level)
		}
	})

	t.Run("ClampsAtMaxXP", func(t *testing.T) {
		maxXP := testCurve().MaxXP
		if err := s.AdjustXP("u1", "g1", maxXP); err != nil {
			t.Fatalf("AdjustXP returned error: %v", err)
		}
		if err := s.AdjustXP("u1", "g1", maxXP); err != nil {
			t.Fatalf("second AdjustXP returned error: %v", err)
		}
		user, _ := s.Get("u1", "g1")
		if user.XP != maxXP {
			t.Errorf("expected XP capped at %d, got %d", maxXP, user.XP)
		}
		if user.Level != 100 {
			t.Errorf("expected level 100 at cap, got %d", user.Level)
		}
	})

	t.Run("RecomputesLevel", func(t *testing.T) {
		if err := s.SetXP("u1", "g1", 0); err != nil {
			t.Fatalf("SetXP returned error: %v", err)
		}
		if err := s.AdjustXP("u1", "g1", 300); err != nil {
			t.Fatalf("AdjustXP returned error: %v", err)
		}
		user, _ := s.Get("u1", "g1")
		if user.XP != 300 || user.Level != 3 {
			t.Errorf("expected (xp=300, level=3), got (xp=%d, level=%d)", user.XP, user.Level)
		}
	})
}

func TestRecordAttendance(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)
	s.CreateIfAbsent("u1", "g1")
	now := time.Now()

	accepted, oldLevel, newLevel, err := s.RecordAttendance("u1", "g1", 50, now)
	if err != nil {
		t.Fatalf("RecordAttendance returned error: %v", err)
	}
	if !accepted {
		t.Fatal("expected first attendance to be accepted")
	}
	if oldLevel != 1 || newLevel != 1 {
		t.Errorf("expected levels (1, 1), got (%d, %d)", oldLevel, newLevel)
	}

	t.Run("RejectsSameDay", func(t *testing.T) {
		accepted, oldLevel, newLevel, err := s.RecordAttendance("u1", "g1", 50, now)
		if err != nil {
			t.Fatalf("RecordAttendance returned error: %v", err)
		}
		if accepted {
			t.Fatal("expected second attendance on the same day to be rejected")
		}
		if oldLevel != newLevel {
			t.Errorf("rejection must not change level: got (%d, %d)", oldLevel, newLevel)
		}
		user, _ := s.Get("u1", "g1")
		if user.XP != 50 {
			t.Errorf("rejection must not change XP: got %d", user.XP)
		}
	})

	t.Run("AcceptsAfterRollover", func(t *testing.T) {
		day = "2025-01-02"
		accepted, _, newLevel, err := s.RecordAttendance("u1", "g1", 50, now)
		if err != nil {
			t.Fatalf("RecordAttendance returned error: %v", err)
		}
		if !accepted {
			t.Fatal("expected attendance on a new day to be accepted")
		}
		if newLevel != 2 {
			t.Errorf("expected level 2 at 100 XP, got %d", newLevel)
		}
	})

	t.Run("MissingRecord", func(t *testing.T) {
		if _, _, _, err := s.RecordAttendance("ghost", "g1", 50, now); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRecordAttendanceLevelUp(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)
	s.CreateIfAbsent("u1", "g1")
	s.SetXP("u1", "g1", 90)

	accepted, oldLevel, newLevel, err := s.RecordAttendance("u1", "g1", 50, time.Now())
	if err != nil {
		t.Fatalf("RecordAttendance returned error: %v", err)
	}
	if !accepted {
		t.Fatal("expected attendance to be accepted")
	}
	if oldLevel != 1 || newLevel != 2 {
		t.Errorf("expected level up (1 -> 2), got (%d -> %d)", oldLevel, newLevel)
	}
}

func TestRecordAttendanceConcurrent(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)
	s.CreateIfAbsent("u1", "g1")
	now := time.Now()

	const n = 16
	results := make(chan bool, n)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accepted, _, _, err := s.RecordAttendance("u1", "g1", 50, now)
			if err != nil {
				errs <- err
				return
			}
			results <- accepted
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("RecordAttendance returned error: %v", err)
	}

	successes := 0
	for accepted := range results {
		if accepted {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 accepted attendance, got %d", successes)
	}

	user, _ := s.Get("u1", "g1")
	if user.XP != 50 {
		t.Errorf("expected XP to increase by exactly one grant (50), got %d", user.XP)
	}
}

func TestSetXP(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)
	s.CreateIfAbsent("u1", "g1")

	if err := s.SetXP("u1", "g1", 475); err != nil {
		t.Fatalf("SetXP returned error: %v", err)
	}
	user, _ := s.Get("u1", "g1")
	if user.XP != 475 || user.Level != 4 {
		t.Errorf("expected (xp=475, level=4), got (xp=%d, level=%d)", user.XP, user.Level)
	}

	t.Run("ClampsNegative", func(t *testing.T) {
		if err := s.SetXP("u1", "g1", -42); err != nil {
			t.Fatalf("SetXP returned error: %v", err)
		}
		user, _ := s.Get("u1", "g1")
		if user.XP != 0 || user.Level != 1 {
			t.Errorf("expected (xp=0, level=1), got (xp=%d, level=%d)", user.XP, user.Level)
		}
	})

	t.Run("MissingRecord", func(t *testing.T) {
		if err := s.SetXP("ghost", "g1", 100); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReset(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)
	s.CreateIfAbsent("u1", "g1")
	s.RecordAttendance("u1", "g1", 50, time.Now())
	s.SetXP("u1", "g1", 1000)

	if err := s.Reset("u1", "g1"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	user, err := s.Get("u1", "g1")
	if err != nil {
		t.Fatalf("expected row to survive reset, got %v", err)
	}
	if user.XP != 0 || user.Level != 1 || user.LastAttendance != nil {
		t.Errorf("expected zeroed record, got (xp=%d, level=%d, last=%v)", user.XP, user.Level, user.LastAttendance)
	}

	// After reset the attendance gate is open again.
	accepted, _, _, err := s.RecordAttendance("u1", "g1", 50, time.Now())
	if err != nil {
		t.Fatalf("RecordAttendance returned error: %v", err)
	}
	if !accepted {
		t.Error("expected attendance to be accepted after reset")
	}
}

func TestLeaderboard(t *testing.T) {
	day := "2025-01-01"
	s := newTestStore(t, &day)

	for _, row := range []struct {
		userID string
		xp     int64
	}{
		{"low", 10},
		{"top", 1000},
		{"mid", 300},
		{"mid2", 260},
	} {
		s.CreateIfAbsent(row.userID, "g1")
		s.SetXP(row.userID, "g1", row.xp)
	}
	// Different guild must not leak in.
	s.CreateIfAbsent("other", "g2")
	s.SetXP("other", "g2", 99999)

	users, err := s.Leaderboard("g1", 3)
	if err != nil {
		t.Fatalf("Leaderboard returned error: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(users))
	}

	wantOrder := []string{"top", "mid", "mid2"}
	for i, want := range wantOrder {
		if users[i].UserID != want {
			t.Errorf("rank %d: expected %s, got %s", i+1, want, users[i].UserID)
		}
	}
}
