package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/service/admission"
	"github.com/secmon-lab/askemail/pkg/service/mail"
	"github.com/secmon-lab/askemail/pkg/utils/logging"
)

// The fixed notice sent when a sender exhausted today's reply quota. The
// quota resets at midnight UTC together with the counting window.
const (
	limitNoticeSubject = "You just reached today's limit for AskEmail :("
	limitNoticeBody    = "## You just reached today's limit for AskEmail :(\nBut don't worry, this will reset today at midnight UTC"
)

// HandleEmail runs the whole pipeline for one inbound email: rate limit
// check, attachment admission, agent conversation, reply composition and
// delivery, then the counter update. Exactly one reply is sent per call
// that returns nil; any error means no reply went out except when the
// error is ErrDeliveryFailed (the send itself failed).
func (uc *UseCases) HandleEmail(ctx context.Context, email *model.InboundEmail) error {
	logger := logging.From(ctx)
	sender := email.From.Normalize()

	logger.Info("received email",
		"from", sender,
		"subject", email.Subject,
		"attachments", len(email.Attachments),
	)

	count, err := uc.repo.Usage().CountSince(ctx, sender, startOfUTCDay())
	if err != nil {
		return goerr.Wrap(err, "failed to count today's replies", goerr.V("sender", sender))
	}

	rateLimited := count > uc.cfg.MaxRepliesPerDay
	var resp *model.ModelResponse
	if rateLimited {
		logger.Info("rate limited sender for today", "sender", sender, "count", count)
		resp, err = uc.limitNotice(email)
		if err != nil {
			return err
		}
	} else {
		adm := admission.New(uc.cfg).Admit(email.Attachments)
		for _, d := range adm.Decisions {
			if !d.Accepted {
				logger.Info("attachment not admitted",
					"filename", d.Filename,
					"mimetype", d.MIMEType,
					"reason", d.Reason,
				)
			}
		}

		resp, err = uc.generateResponse(ctx, email, adm)
		if err != nil {
			return err
		}
	}

	raw := mail.ComposeReply(email, resp, uc.cfg)
	if err := uc.transport.Send(ctx, raw, uc.cfg.FromAddress, sender.String()); err != nil {
		return goerr.Wrap(ErrDeliveryFailed, "transport send failed",
			goerr.V("transport", uc.transport.Name()),
			goerr.V("sender", sender),
			goerr.V("cause", err.Error()),
		)
	}

	// The reply already went out; a failed counter update must not turn a
	// delivered message into a pipeline failure.
	if !rateLimited {
		if err := uc.repo.Usage().RecordReply(ctx, sender); err != nil {
			logger.Error("failed to record reply for rate limiting",
				"sender", sender,
				"error", err.Error(),
			)
		}
	}

	logger.Info("reply delivered",
		"sender", sender,
		"subject", resp.Subject,
		"transport", uc.transport.Name(),
		"rate_limited", rateLimited,
	)
	return nil
}

func (uc *UseCases) limitNotice(email *model.InboundEmail) (*model.ModelResponse, error) {
	html, err := mail.RenderMarkdown(limitNoticeBody)
	if err != nil {
		return nil, err
	}
	return &model.ModelResponse{
		Response: limitNoticeBody,
		Subject:  limitNoticeSubject,
		HTML:     html,
	}, nil
}

func startOfUTCDay() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
