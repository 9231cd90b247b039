package plc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestOps(t *testing.T, opts ...OpsOption) (*Ops, *FakeTransport) {
	t.Helper()

	ft := NewFakeTransport()
	require.NoError(t, ft.Connect())

	base := []OpsOption{
		WithRetryDelay(time.Millisecond),
		WithPollInterval(2 * time.Millisecond),
	}
	ops := NewOps(ft, append(base, opts...)...)

	return ops, ft
}

func TestReadRegister(t *testing.T) {
	t.Run("retries transient faults", func(t *testing.T) {
		ops, ft := newTestOps(t)
		ft.FailReads(RegStorageStatus, 2)
		ft.QueueReads(RegStorageStatus, StorageAvailable)

		val, err := ops.ReadRegister(context.Background(), RegStorageStatus)
		require.NoError(t, err)
		require.Equal(t, uint16(StorageAvailable), val)
		require.Equal(t, 3, ft.ReadCount(RegStorageStatus))
	})

	t.Run("fails with ErrIO after exhausting retries", func(t *testing.T) {
		ops, ft := newTestOps(t)
		ft.FailReads(RegStorageStatus, 3)

		_, err := ops.ReadRegister(context.Background(), RegStorageStatus)
		require.ErrorIs(t, err, ErrIO)
		require.Equal(t, 3, ft.ReadCount(RegStorageStatus))
	})

	t.Run("honors custom retry count", func(t *testing.T) {
		ops, ft := newTestOps(t, WithRetryCount(5))
		ft.FailReads(RegStorageStatus, 4)
		ft.QueueReads(RegStorageStatus, StorageFull)

		val, err := ops.ReadRegister(context.Background(), RegStorageStatus)
		require.NoError(t, err)
		require.Equal(t, uint16(StorageFull), val)
		require.Equal(t, 5, ft.ReadCount(RegStorageStatus))
	})
}

func TestWriteRegister(t *testing.T) {
	t.Run("records the write", func(t *testing.T) {
		ops, ft := newTestOps(t)

		err := ops.WriteRegister(context.Background(), RegDoorControl, DoorOpen)
		require.NoError(t, err)
		require.Equal(t, []WriteOp{{Register: RegDoorControl, Value: DoorOpen}}, ft.Writes())
	})

	t.Run("fails with ErrIO when transport is down", func(t *testing.T) {
		ft := NewFakeTransport()
		ops := NewOps(ft, WithRetryDelay(time.Millisecond))

		err := ops.WriteRegister(context.Background(), RegDoorControl, DoorOpen)
		require.ErrorIs(t, err, ErrIO)
		require.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestWaitValue(t *testing.T) {
	t.Run("already matching value returns immediately", func(t *testing.T) {
		ops, ft := newTestOps(t)
		ft.Set(RegStorageStatus, StorageAvailable)

		start := time.Now()
		val, err := ops.WaitValue(context.Background(), RegStorageStatus,
			[]uint16{StorageFull, StorageAvailable}, time.Second)
		require.NoError(t, err)
		require.Equal(t, uint16(StorageAvailable), val)
		require.Equal(t, 1, ft.ReadCount(RegStorageStatus))
		require.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("returns the matched value for branching", func(t *testing.T) {
		ops, ft := newTestOps(t)
		ft.QueueReads(RegPackageOp, 0, 0, OpEmptyCollect)

		val, err := ops.WaitValue(context.Background(), RegPackageOp,
			[]uint16{OpEmptyCollect, OpNoEmptyCollect}, time.Second)
		require.NoError(t, err)
		require.Equal(t, uint16(OpEmptyCollect), val)
	})

	t.Run("read failures do not abort the wait", func(t *testing.T) {
		ops, ft := newTestOps(t, WithRetryCount(1))
		ft.FailReads(RegServo, 3)
		ft.QueueReads(RegServo, ServoCanOpen)

		val, err := ops.WaitValue(context.Background(), RegServo,
			[]uint16{ServoCanOpen}, time.Second)
		require.NoError(t, err)
		require.Equal(t, uint16(ServoCanOpen), val)
	})

	t.Run("times out with ErrWaitTimeout", func(t *testing.T) {
		ops, ft := newTestOps(t)
		ft.Set(RegServo, ServoClosed)

		start := time.Now()
		_, err := ops.WaitValue(context.Background(), RegServo,
			[]uint16{ServoCanOpen}, 20*time.Millisecond)
		require.ErrorIs(t, err, ErrWaitTimeout)
		require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("context cancellation stops the poll", func(t *testing.T) {
		ops, _ := newTestOps(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := ops.WaitValue(ctx, RegServo, []uint16{ServoCanOpen}, time.Second)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSleep(t *testing.T) {
	t.Run("returns early on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Sleep(ctx, time.Second)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("waits out the duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 5*time.Millisecond))
		require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})
}

func TestFakeTransportDisconnected(t *testing.T) {
	ft := NewFakeTransport()

	_, err := ft.ReadRegister(RegServo.Addr())
	require.ErrorIs(t, err, ErrNotConnected)

	err = ft.WriteRegister(RegServo.Addr(), 1)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestErrIOUnwrapsTransportError(t *testing.T) {
	ops, ft := newTestOps(t)
	ft.FailReads(RegServo, 3)

	_, err := ops.ReadRegister(context.Background(), RegServo)
	require.ErrorIs(t, err, ErrIO)
	require.True(t, errors.Is(err, errInjectedFault))
}