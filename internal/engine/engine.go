// Package engine runs the four-stage pipeline that moves IP frames between
// the tun device and the transport: read from tun, encrypt, send; receive,
// decrypt, write to tun. The two directions are independent pipelines
// joined only by the keepalive scheduler's view of outbound activity.
package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"covertun/internal/buffer"
	"covertun/internal/crypto"
	"covertun/internal/settings"
	"covertun/internal/transport"
	"covertun/internal/tun"
	"covertun/internal/vpnerr"
)

// Engine wires one tun device to one transport through a shared cipher.
type Engine struct {
	device tun.Device
	trans  transport.Transport
	cipher *crypto.Cipher
	log    zerolog.Logger

	keepalive *keepaliveScheduler
}

// New constructs an engine ready to Run.
func New(device tun.Device, trans transport.Transport, cipher *crypto.Cipher, log zerolog.Logger) *Engine {
	return &Engine{
		device:    device,
		trans:     trans,
		cipher:    cipher,
		log:       log,
		keepalive: newKeepaliveScheduler(trans, cipher, log),
	}
}

// Run starts the four pipeline stages (and the keepalive scheduler, if the
// transport needs one) inside an errgroup.Group: the Go analogue of the
// original implementation's scoped threads. Any worker's error cancels ctx
// and is returned, propagating fatally to the caller — by design there is
// no per-worker restart, matching the spec's "any worker error is fatal"
// policy.
func (e *Engine) Run(ctx context.Context) error {
	tunToTransport := make(chan *buffer.Frame, settings.QueueDepth)
	transportToTun := make(chan *buffer.Frame, settings.QueueDepth)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.readTun(gctx, tunToTransport) })
	g.Go(func() error { return e.encryptAndSend(gctx, tunToTransport) })
	g.Go(func() error { return e.receiveAndDecrypt(gctx, transportToTun) })
	g.Go(func() error { return e.writeTun(gctx, transportToTun) })
	if e.trans.NeedsKeepalive() {
		g.Go(func() error { return e.keepalive.run(gctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readTun reads one IP frame at a time from the tun device and forwards it
// for encryption, recording every read as datapath activity for the
// keepalive scheduler.
func (e *Engine) readTun(ctx context.Context, out chan<- *buffer.Frame) error {
	for {
		frame := buffer.New()
		n, err := e.device.Read(frame.Slice()[:settings.VPNMTU])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		frame.SetLength(n)
		e.keepalive.recordTunActivity()

		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// encryptAndSend seals each tun frame and hands it to the transport.
func (e *Engine) encryptAndSend(ctx context.Context, in <-chan *buffer.Frame) error {
	for {
		select {
		case frame := <-in:
			if err := e.cipher.Encrypt(frame); err != nil {
				// encrypt is a programming error per the spec's error
				// taxonomy, not a wire condition: fatal.
				return err
			}
			if err := e.trans.Send(frame); err != nil {
				if errors.Is(err, vpnerr.ErrTransientIO) || errors.Is(err, vpnerr.ErrNoPeerYet) {
					e.log.Trace().Err(err).Msg("dropping frame, transport not ready")
					continue
				}
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// receiveAndDecrypt blocks on the transport and decrypts whatever arrives,
// silently dropping anything that fails authentication or length checks so
// unauthenticated probing cannot be used to flood logs.
func (e *Engine) receiveAndDecrypt(ctx context.Context, out chan<- *buffer.Frame) error {
	for {
		frame := buffer.New()
		if err := e.trans.Receive(frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, vpnerr.ErrTransientIO) {
				e.log.Trace().Err(err).Msg("transient transport read error")
				continue
			}
			if errors.Is(err, vpnerr.ErrCodec) {
				e.log.Trace().Err(err).Msg("dropping frame, malformed transport encoding")
				continue
			}
			return err
		}

		if err := e.cipher.Decrypt(frame); err != nil {
			e.log.Trace().Err(err).Msg("dropping frame, decryption failed")
			continue
		}
		e.trans.MarkLastReceivedValid()

		if frame.Len() == 0 {
			// Keepalive payload: already "delivered" by having decrypted
			// successfully. Do not forward an empty frame to tun.
			continue
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeTun submits each decrypted frame to the tun device.
func (e *Engine) writeTun(ctx context.Context, in <-chan *buffer.Frame) error {
	for {
		select {
		case frame := <-in:
			if _, err := e.device.Write(frame.Bytes()); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
