package history

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarcast/core/features"
	"github.com/kilianp07/solarcast/core/model"
)

var base = time.Date(2021, 6, 15, 8, 0, 0, 0, time.UTC)

func reading(i int) model.Reading {
	return features.NewReading(base.Add(time.Duration(i)*time.Minute), 20+float64(i)/10, 30, 0.5, float64(i))
}

func assertSameReading(t *testing.T, want, got model.Reading) {
	t.Helper()
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", want.Timestamp, got.Timestamp)
	assert.Equal(t, want.AmbientTemperature, got.AmbientTemperature)
	assert.Equal(t, want.ModuleTemperature, got.ModuleTemperature)
	assert.Equal(t, want.Irradiation, got.Irradiation)
	assert.Equal(t, want.ACPower, got.ACPower)
	assert.Equal(t, want.Hour, got.Hour)
	assert.Equal(t, want.DayOfWeek, got.DayOfWeek)
	assert.Equal(t, want.Month, got.Month)
}

func newFileStore(t *testing.T) (*BoundedStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensor_history.csv")
	return NewBoundedStore(NewFileStorage(path), DefaultCapacity, WithLocation(time.UTC)), path
}

func TestBoundedStore_EvictsOldestFirst(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()
	for i := 1; i <= 105; i++ {
		require.NoError(t, s.Append(ctx, reading(i)))
	}
	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 100)
	for i, r := range rows {
		assertSameReading(t, reading(i+6), r)
	}
}

func TestBoundedStore_SizeNeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{0, 1, 99, 100, 101, 150} {
		s := NewBoundedStore(NewMemoryStorage(), DefaultCapacity, WithLocation(time.UTC))
		for i := 1; i <= n; i++ {
			require.NoError(t, s.Append(ctx, reading(i)))
		}
		if n == 0 {
			_, err := s.ReadAll(ctx)
			assert.ErrorIs(t, err, ErrStoreUnavailable)
			continue
		}
		rows, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, min(n, DefaultCapacity), "n=%d", n)
		assertSameReading(t, reading(n), rows[len(rows)-1])
	}
}

func TestBoundedStore_RoundTrip(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()
	want := features.NewReading(time.Date(2020, 5, 15, 13, 45, 12, 0, time.UTC), 27.123456789, 41.5, 0.987654321, 123.25)
	require.NoError(t, s.Append(ctx, want))
	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assertSameReading(t, want, rows[0])
}

func TestBoundedStore_MissingFileIsUnavailable(t *testing.T) {
	s, _ := newFileStore(t)
	_, err := s.ReadAll(context.Background())
	require.Error(t, err)
	var sue *StoreUnavailableError
	assert.True(t, errors.As(err, &sue))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = s.Tail(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestBoundedStore_EmptyFileHasNoRows(t *testing.T) {
	s, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	rows, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)

	data, err := EncodeCSV(nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	rows, err = s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBoundedStore_CorruptIsUnavailable(t *testing.T) {
	mem := NewMemoryStorage()
	s := NewBoundedStore(mem, DefaultCapacity, WithLocation(time.UTC))
	mem.Set([]byte("not,a,history\n1,2\n"))
	_, err := s.ReadAll(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	// Append must not overwrite a corrupt store.
	err = s.Append(context.Background(), reading(1))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 0, mem.Saves())
}

func TestBoundedStore_RejectsInvalidReading(t *testing.T) {
	mem := NewMemoryStorage()
	s := NewBoundedStore(mem, DefaultCapacity, WithLocation(time.UTC))
	bad := reading(1)
	bad.ACPower = -1
	err := s.Append(context.Background(), bad)
	assert.ErrorIs(t, err, features.ErrInvalidField)

	bad = reading(1)
	bad.Hour = (bad.Hour + 1) % 24
	err = s.Append(context.Background(), bad)
	assert.ErrorIs(t, err, features.ErrInvalidField)
	assert.Equal(t, 0, mem.Saves())
}

func TestBoundedStore_NormalizesLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	s := NewBoundedStore(NewMemoryStorage(), DefaultCapacity, WithLocation(time.UTC))
	r := features.NewReading(time.Date(2021, 6, 15, 1, 0, 0, 0, paris), 20, 25, 0, 0)
	require.NoError(t, s.Append(context.Background(), r))
	rows, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 23, rows[0].Hour)
	assert.Equal(t, 0, rows[0].DayOfWeek)
}

func TestBoundedStore_KeepsRepeatedDSTHour(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 01:30 happens twice on 2021-11-07, first in EDT then in EST.
	edt := time.Date(2021, 11, 7, 5, 30, 0, 0, time.UTC).In(ny)
	est := edt.Add(time.Hour)
	require.Equal(t, edt.Hour(), est.Hour())

	mem := NewMemoryStorage()
	s := NewBoundedStore(mem, DefaultCapacity, WithLocation(ny))
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, features.NewReading(edt, 10, 12, 0, 0)))
	require.NoError(t, s.Append(ctx, features.NewReading(est, 10, 12, 0, 0)))

	rows, err := NewBoundedStore(mem, DefaultCapacity, WithLocation(ny)).ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, edt.Equal(rows[0].Timestamp), "got %v", rows[0].Timestamp)
	assert.True(t, est.Equal(rows[1].Timestamp), "got %v", rows[1].Timestamp)
	assert.Equal(t, time.Hour, rows[1].Timestamp.Sub(rows[0].Timestamp))
}

func TestDecodeCSV_AcceptsTimestampsWithoutOffset(t *testing.T) {
	data := "DATE_TIME,AMBIENT_TEMPERATURE,MODULE_TEMPERATURE,IRRADIATION,AC_POWER,HOUR,DAY_OF_WEEK,MONTH\n" +
		"2021-06-15 08:00:00,20,30,0.5,1,8,1,6\n" +
		"2021-06-15 08:01:00+00:00,20,30,0.5,1,8,1,6\n"
	rows, err := DecodeCSV([]byte(data), time.UTC)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, base.Equal(rows[0].Timestamp))
	assert.True(t, base.Add(time.Minute).Equal(rows[1].Timestamp))
}

func TestBoundedStore_Tail(t *testing.T) {
	s := NewBoundedStore(NewMemoryStorage(), DefaultCapacity, WithLocation(time.UTC))
	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		require.NoError(t, s.Append(ctx, reading(i)))
	}
	rows, err := s.Tail(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assertSameReading(t, reading(8), rows[0])
	assertSameReading(t, reading(10), rows[2])

	rows, err = s.Tail(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = s.Tail(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, rows, 10)

	_, err = s.Tail(ctx, -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestBoundedStore_TrimsOversizedFile(t *testing.T) {
	rows := make([]model.Reading, 0, 120)
	for i := 1; i <= 120; i++ {
		rows = append(rows, reading(i))
	}
	data, err := EncodeCSV(rows)
	require.NoError(t, err)
	mem := NewMemoryStorage()
	mem.Set(data)
	s := NewBoundedStore(mem, DefaultCapacity, WithLocation(time.UTC))
	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 100)
	assertSameReading(t, reading(21), got[0])
}

func TestFileStorage_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "history.csv")
	st := NewFileStorage(path)
	require.NoError(t, st.Save(context.Background(), []byte("a")))
	require.NoError(t, st.Save(context.Background(), []byte("b")))
	got, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDecodeCSV_ReportsLine(t *testing.T) {
	data := "DATE_TIME,AMBIENT_TEMPERATURE,MODULE_TEMPERATURE,IRRADIATION,AC_POWER,HOUR,DAY_OF_WEEK,MONTH\n" +
		"2021-06-15 08:00:00,20,30,0.5,1,8,1,6\n" +
		"2021-06-15 08:01:00,abc,30,0.5,1,8,1,6\n"
	_, err := DecodeCSV([]byte(data), time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "csv", c.Backend)
	assert.Equal(t, "sensor_history.csv", c.Path)
	assert.Equal(t, DefaultCapacity, c.Capacity)
	assert.NoError(t, c.Validate())

	c = Config{Backend: "redis"}
	c.SetDefaults()
	assert.Error(t, c.Validate())
}

func TestOpen_CSV(t *testing.T) {
	cfg := Config{Path: filepath.Join(t.TempDir(), "h.csv")}
	cfg.SetDefaults()
	s, err := Open(cfg, WithLocation(time.UTC))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Append(context.Background(), reading(1)))
	rows, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
