package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"covertun/internal/buffer"
	"covertun/internal/crypto"
	"covertun/internal/transport"
	"covertun/internal/vpnerr"
)

// keepaliveIdleThreshold is how long the egress side may stay silent before
// the scheduler injects an empty authenticated frame to hold NAT/path state
// open.
const keepaliveIdleThreshold = 60 * time.Second

// keepaliveScheduler tracks the last time a real frame was read from tun
// and sends an empty, cipher-sealed frame whenever that goes stale. Sending
// one resets the clock exactly like a real frame would, so a run of
// keepalives spaces itself out at keepaliveIdleThreshold rather than
// firing every wakeup.
type keepaliveScheduler struct {
	trans  transport.Transport
	cipher *crypto.Cipher
	log    zerolog.Logger

	mu          sync.Mutex
	lastTunRead time.Time
}

func newKeepaliveScheduler(trans transport.Transport, cipher *crypto.Cipher, log zerolog.Logger) *keepaliveScheduler {
	return &keepaliveScheduler{trans: trans, cipher: cipher, log: log, lastTunRead: time.Now()}
}

func (k *keepaliveScheduler) recordTunActivity() {
	k.mu.Lock()
	k.lastTunRead = time.Now()
	k.mu.Unlock()
}

func (k *keepaliveScheduler) idleSince() time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()
	return time.Since(k.lastTunRead)
}

// run wakes up, recomputes the sleep interval from the current
// lastTunRead (another worker may have just reset it), and sends a
// keepalive once the idle period is reached. The interval is recomputed on
// every wakeup rather than fixed at scheduling time because a real frame
// can arrive at any moment and should push the next keepalive back.
func (k *keepaliveScheduler) run(ctx context.Context) error {
	for {
		sleep := keepaliveIdleThreshold - k.idleSince()
		if sleep < 0 {
			sleep = 0
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if k.idleSince() < keepaliveIdleThreshold {
				continue
			}
			if err := k.send(); err != nil {
				return err
			}
			k.recordTunActivity()
		}
	}
}

func (k *keepaliveScheduler) send() error {
	frame := buffer.New()
	if err := k.cipher.Encrypt(frame); err != nil {
		return err
	}
	if err := k.trans.Send(frame); err != nil {
		if errors.Is(err, vpnerr.ErrTransientIO) || errors.Is(err, vpnerr.ErrNoPeerYet) {
			k.log.Trace().Err(err).Msg("keepalive send deferred, transport not ready")
			return nil
		}
		return err
	}
	return nil
}
