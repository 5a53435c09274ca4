package dframe

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/dfseg/internal/format"
	"github.com/joshuapare/dfseg/shm"
)

func TestPopulateExampleDF1(t *testing.T) {
	opts := testOptions(t)
	payload := payloadOf(42)

	seg, err := Populate("df1", RoleWorker, 42, payload, opts)
	require.NoError(t, err)
	defer seg.Close()

	hdr := seg.Header()
	assert.Equal(t, uint64(42), hdr.Size)
	assert.Equal(t, format.KindDataFrame, hdr.Kind)
	assert.Equal(t, RoleWorker, hdr.Store)
	assert.True(t, hdr.Populated())
	assert.False(t, hdr.External())

	page := shm.PageSize()
	assert.Equal(t, format.Align(format.HeaderSize, page)+format.Align(42, page), seg.Len())
	assert.Equal(t, format.Align(format.HeaderSize, page), seg.Layout().PayloadOffset())

	// The bytes are in the region file at the payload offset.
	raw, err := os.ReadFile(mustPath(t, opts, "df1", shm.TierMemory))
	require.NoError(t, err)
	off := seg.Layout().PayloadOffset()
	assert.Equal(t, payload, raw[off:off+42])
}

func TestPopulateDimsDefaultZero(t *testing.T) {
	opts := testOptions(t)
	for _, n := range []int{0, 1, 42, 5000} {
		seg, err := Populate("dims", RoleWorker, int64(n), payloadOf(n), opts)
		require.NoError(t, err)
		rows, cols := seg.Dims()
		assert.Zero(t, rows)
		assert.Zero(t, cols)
		require.NoError(t, seg.Close())
		require.NoError(t, Remove("dims", opts))
	}
}

func TestSetDims(t *testing.T) {
	opts := testOptions(t)
	seg, err := Populate("df1", RoleWorker, 3, []byte("abc"), opts)
	require.NoError(t, err)
	defer seg.Close()

	require.NoError(t, seg.SetDims(10, 4))
	rows, cols := seg.Dims()
	assert.Equal(t, int64(10), rows)
	assert.Equal(t, int64(4), cols)
	require.ErrorIs(t, seg.SetDims(-1, 0), ErrInvalidInput)

	other, err := Attach("df1", opts)
	require.NoError(t, err)
	defer other.Close()
	rows, cols = other.Dims()
	assert.Equal(t, [2]int64{10, 4}, [2]int64{rows, cols})
}

func TestPopulateAlignmentInvariant(t *testing.T) {
	opts := testOptions(t)
	page := shm.PageSize()
	for _, n := range []int64{0, 1, page - 1, page, page + 1, 3*page + 5} {
		seg, err := Populate("align", RoleWorker, n, payloadOf(int(n)), opts)
		require.NoError(t, err)
		assert.Zero(t, seg.Len()%page, "size %d", n)
		assert.Equal(t, format.Align(format.HeaderSize, page)+format.Align(n, page), seg.Len())
		require.NoError(t, seg.Close())
		require.NoError(t, Remove("align", opts))
	}
}

func TestTierFor(t *testing.T) {
	const limit = int64(1 << 20)
	assert.Equal(t, shm.TierMemory, TierFor(limit-1, limit))
	assert.Equal(t, shm.TierExternal, TierFor(limit, limit))
	assert.Equal(t, shm.TierExternal, TierFor(limit+1, limit))
	assert.Equal(t, shm.TierMemory, TierFor(0, limit))
}

func TestPopulateTierBoundary(t *testing.T) {
	page := shm.PageSize()
	total := format.Align(format.HeaderSize, page) + format.Align(100, page)

	opts := testOptions(t)
	opts.InmemLimit = total
	seg, err := Populate("at", RoleWorker, 100, payloadOf(100), opts)
	require.NoError(t, err)
	assert.Equal(t, shm.TierExternal, seg.Tier())
	assert.True(t, seg.Header().External())
	_, err = os.Stat(mustPath(t, opts, "at", shm.TierExternal))
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	opts = testOptions(t)
	opts.InmemLimit = total + 1
	seg, err = Populate("below", RoleWorker, 100, payloadOf(100), opts)
	require.NoError(t, err)
	assert.Equal(t, shm.TierMemory, seg.Tier())
	assert.False(t, seg.Header().External())
	require.NoError(t, seg.Close())
}

func TestPopulateInputErrors(t *testing.T) {
	opts := testOptions(t)

	_, err := Populate("df1", RoleWorker, 0, nil, opts)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Populate("df1", RoleMaster, 0, nil, opts)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Populate("df1", RoleWorker, -1, []byte("x"), opts)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Populate("a/b", RoleWorker, 1, []byte("x"), opts)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Populate("df1", Role(7), 1, []byte("x"), opts)
	require.ErrorIs(t, err, ErrInvalidInput)

	bad := opts
	bad.Granularity = 100
	_, err = Populate("df1", RoleWorker, 1, []byte("x"), bad)
	require.ErrorIs(t, err, ErrInvalidInput)

	infos, err := shm.List(opts.Dirs)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestMasterNeverTouchesRegions(t *testing.T) {
	opts := testOptions(t)

	ph, err := NewPlaceholder("df1", RoleMaster, 1<<20, opts)
	require.NoError(t, err)
	pop, err := Populate("df2", RoleMaster, 42, payloadOf(42), opts)
	require.NoError(t, err)

	for _, seg := range []*Segment{ph, pop} {
		assert.Equal(t, RoleMaster, seg.Role())
		assert.Zero(t, seg.Len())
		assert.Equal(t, RoleMaster, seg.Header().Store)
		assert.False(t, seg.Header().Populated())
		rows, cols := seg.Dims()
		assert.Zero(t, rows)
		assert.Zero(t, cols)
	}
	assert.Equal(t, uint64(1<<20), ph.Header().Size)
	assert.Equal(t, uint64(42), pop.Header().Size)

	for _, dir := range []string{opts.Dirs.Memory, opts.Dirs.External} {
		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err), "%s must not be created by the master role", dir)
	}

	require.NoError(t, ph.Close())
	require.NoError(t, pop.Close())
	assert.True(t, pop.Closed())

	for _, dir := range []string{opts.Dirs.Memory, opts.Dirs.External} {
		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestMasterPredictsTier(t *testing.T) {
	opts := testOptions(t)
	opts.InmemLimit = 2 * shm.PageSize()

	small, err := NewPlaceholder("small", RoleMaster, 10, opts)
	require.NoError(t, err)
	big, err := NewPlaceholder("big", RoleMaster, 10*shm.PageSize(), opts)
	require.NoError(t, err)

	assert.Equal(t, shm.TierExternal, small.Tier(), "header block plus one page reaches the limit")
	assert.Equal(t, shm.TierExternal, big.Tier())

	opts.InmemLimit = 3 * shm.PageSize()
	small, err = NewPlaceholder("small", RoleMaster, 10, opts)
	require.NoError(t, err)
	assert.Equal(t, shm.TierMemory, small.Tier())
}

func TestWorkerPlaceholder(t *testing.T) {
	opts := testOptions(t)
	hint := int64(3 * shm.PageSize())

	seg, err := NewPlaceholder("df1", RoleWorker, hint, opts)
	require.NoError(t, err)
	defer seg.Close()

	hdr := seg.Header()
	assert.Zero(t, hdr.Size)
	assert.False(t, hdr.Populated())
	assert.Equal(t, RoleWorker, hdr.Store)

	l, err := format.NewLayout(hint, shm.PageSize())
	require.NoError(t, err)
	assert.Equal(t, l.Total(), seg.Len())

	// Other processes can observe the name.
	infos, err := shm.List(opts.Dirs)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "df1", infos[0].Name)

	_, err = NewPlaceholder("df1", RoleWorker, hint, opts)
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, err, shm.ErrExists)
}

func TestPopulateKeepsPlaceholderTier(t *testing.T) {
	opts := testOptions(t)
	opts.InmemLimit = 1 // everything goes external

	ph, err := NewPlaceholder("df1", RoleWorker, 10, opts)
	require.NoError(t, err)
	require.Equal(t, shm.TierExternal, ph.Tier())
	require.NoError(t, ph.Close())

	opts.InmemLimit = 0 // default, would pick memory for a fresh region
	seg, err := Populate("df1", RoleWorker, 10, payloadOf(10), opts)
	require.NoError(t, err)
	defer seg.Close()
	assert.Equal(t, shm.TierExternal, seg.Tier())
	assert.True(t, seg.Header().External())
	assert.True(t, seg.Header().Populated())
}

func TestExternalTierLoggedOnlyWhenCreated(t *testing.T) {
	page := shm.PageSize()
	var logs bytes.Buffer
	opts := testOptions(t)
	opts.InmemLimit = 2 * page
	opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	ph, err := NewPlaceholder("kept", RoleWorker, 0, opts)
	require.NoError(t, err)
	require.Equal(t, shm.TierMemory, ph.Tier())
	require.NoError(t, ph.Close())

	// A fresh region of this size would be external; the placeholder wins.
	seg, err := Populate("kept", RoleWorker, page, payloadOf(int(page)), opts)
	require.NoError(t, err)
	defer seg.Close()
	assert.Equal(t, shm.TierMemory, seg.Tier())
	assert.NotContains(t, logs.String(), "externally-backed")

	fresh, err := Populate("fresh", RoleWorker, page, payloadOf(int(page)), opts)
	require.NoError(t, err)
	defer fresh.Close()
	assert.Equal(t, shm.TierExternal, fresh.Tier())
	assert.Contains(t, logs.String(), "using externally-backed tier")
	assert.Contains(t, logs.String(), "segment=fresh")
}

func TestAttach(t *testing.T) {
	opts := testOptions(t)
	payload := payloadOf(100)

	w, err := Populate("df1", RoleWorker, 100, payload, opts)
	require.NoError(t, err)
	wantLen := w.Len()
	require.NoError(t, w.Close())
	assert.Zero(t, w.Len())

	a, err := Attach("df1", opts)
	require.NoError(t, err)
	defer a.Close()
	page := shm.PageSize()
	assert.Equal(t, RoleWorker, a.Role())
	assert.Equal(t, uint64(100), a.Header().Size)
	assert.Equal(t, wantLen, a.Len())
	assert.Equal(t, format.Align(format.HeaderSize, page)+format.Align(100, page), a.Len())
}

func TestAttachMissing(t *testing.T) {
	_, err := Attach("nope", testOptions(t))
	require.ErrorIs(t, err, ErrWriteTargetUnavailable)
	require.ErrorIs(t, err, shm.ErrNotFound)
}

func TestAttachCorruptHeader(t *testing.T) {
	opts := testOptions(t)
	seg, err := Populate("df1", RoleWorker, 1, []byte("x"), opts)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	path := mustPath(t, opts, "df1", shm.TierMemory)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("XXXX"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Attach("df1", opts)
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, err, format.ErrSignatureMismatch)
}

func TestCloseKeepsRegionUnlessUnlink(t *testing.T) {
	opts := testOptions(t)
	seg, err := Populate("keep", RoleWorker, 1, []byte("x"), opts)
	require.NoError(t, err)
	require.NoError(t, seg.Close())
	require.NoError(t, seg.Close())
	_, err = os.Stat(mustPath(t, opts, "keep", shm.TierMemory))
	require.NoError(t, err)
	assert.Equal(t, Header{}, seg.Header())

	opts.Unlink = true
	seg, err = Populate("drop", RoleWorker, 1, []byte("x"), opts)
	require.NoError(t, err)
	require.NoError(t, seg.Close())
	_, err = os.Stat(mustPath(t, opts, "drop", shm.TierMemory))
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveMissing(t *testing.T) {
	err := Remove("nope", testOptions(t))
	require.ErrorIs(t, err, ErrWriteTargetUnavailable)
}

func TestCatalogRecordsHeaders(t *testing.T) {
	opts := testOptions(t)
	cat := &recordingCatalog{}
	opts.Catalog = cat

	m, err := NewPlaceholder("planned", RoleMaster, 500, opts)
	require.NoError(t, err)
	defer m.Close()
	w, err := Populate("written", RoleWorker, 3, []byte("abc"), opts)
	require.NoError(t, err)
	defer w.Close()

	require.Contains(t, cat.headers, "planned")
	assert.Equal(t, uint64(500), cat.headers["planned"].Size)
	assert.Equal(t, RoleMaster, cat.headers["planned"].Store)
	require.Contains(t, cat.headers, "written")
	assert.True(t, cat.headers["written"].Populated())
}

func mustPath(t *testing.T, opts Options, name string, tier shm.Tier) string {
	t.Helper()
	p, err := opts.Dirs.Path(name, tier)
	require.NoError(t, err)
	return p
}
