// Package consumerWorker drains the delayed verification-expiry queue:
// anonymous registrations that were never confirmed by e-mail are removed
// once their verification window has elapsed.
package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"github.com/Luhive/luhive-mvp-sub000/internal/dto"
	"github.com/Luhive/luhive-mvp-sub000/internal/mailer"
	"github.com/Luhive/luhive-mvp-sub000/internal/rabbit"
	"github.com/Luhive/luhive-mvp-sub000/internal/repo"
)

type Reader struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	mail   *mailer.Mailer
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository, mail *mailer.Mailer) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repo,
		mail: mail,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("verification expiry reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.VerificationExpiryMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("failed to unmarshal message: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Int64("registration_id", msg.RegistrationID).
				Int64("event_id", msg.EventID).
				Msg("verification window elapsed, checking registration")

			// Snapshot before the delete: the guest address is gone
			// from the DB afterwards.
			reg, regErr := r.repo.GetRegistrationByID(cctx, msg.RegistrationID)

			removed, err := r.repo.DeleteIfUnverifiedTx(cctx, msg.RegistrationID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Int64("registration_id", msg.RegistrationID).
					Msg("failed to clean up unverified registration")
				return err
			}

			if !removed {
				zlog.Logger.Info().
					Int64("registration_id", msg.RegistrationID).
					Msg("registration verified or already gone, nothing to do")
				return nil
			}

			if regErr != nil {
				zlog.Logger.Warn().
					Err(regErr).
					Int64("registration_id", msg.RegistrationID).
					Msg("removed registration but could not load it for notification")
				return nil
			}

			event, err := r.repo.GetEventByID(cctx, reg.EventID)
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Int64("event_id", reg.EventID).
					Msg("failed to get event for expiry notification")
				return nil
			}

			if err := r.mail.SendRegistrationEmail(event.Title, "expired", reg.GuestEmail); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Msg("failed to send expiry notification e-mail")
			} else {
				zlog.Logger.Info().
					Str("email", reg.GuestEmail).
					Int64("registration_id", msg.RegistrationID).
					Msg("expiry notification sent")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("verification expiry reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
