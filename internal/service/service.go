package service

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"donationBoard/internal/auth"
	"donationBoard/internal/board"
	"donationBoard/internal/dto"
	"donationBoard/internal/mailer"
	"donationBoard/internal/model"
	"donationBoard/internal/render"
	"donationBoard/pkg/validator"
)

const maxImportSize = 10 << 20

type Service interface {
	Page(ctx *ginext.Context)
	ListEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	Stats(ctx *ginext.Context)
	CreateEvent(ctx *ginext.Context)
	Donate(ctx *ginext.Context)
	EditEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
	AdminLogin(ctx *ginext.Context)
	AdminLogout(ctx *ginext.Context)
	AdminStatus(ctx *ginext.Context)
	Export(ctx *ginext.Context)
	Import(ctx *ginext.Context)
}

type service struct {
	board *board.Board
	gate  *auth.Gate
	mail  *mailer.Mailer
	log   *zerolog.Logger
}

func NewService(b *board.Board, gate *auth.Gate, mail *mailer.Mailer, logger *zerolog.Logger) Service {
	return &service{
		board: b,
		gate:  gate,
		mail:  mail,
		log:   logger,
	}
}

func (s *service) Page(ctx *ginext.Context) {
	ctx.HTML(http.StatusOK, render.PageTemplate, s.page(ctx, ctx.Query("q")))
}

func (s *service) ListEvents(ctx *ginext.Context) {
	dto.SuccessResponse(ctx, s.page(ctx, ctx.Query("q")))
}

func (s *service) GetEvent(ctx *ginext.Context) {
	event, err := s.board.Get(ctx.Param("id"))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, dto.EventResponse{
		Event: event,
		Card:  render.Cards([]model.Event{event}, s.gate.IsAdmin(ctx))[0],
	})
}

func (s *service) Stats(ctx *ginext.Context) {
	dto.SuccessResponse(ctx, s.board.Stats())
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse create event request")
		dto.FieldIncorrectError(ctx, dto.MsgInvalidEvent)
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Warn().Msgf("validation failed: %v", verr)
		dto.FieldIncorrectError(ctx, dto.MsgInvalidEvent)
		return
	}

	event, err := s.board.CreateEvent(ctx.Request.Context(), req.Name, req.Goal, s.gate.IsAdmin(ctx))
	if err != nil {
		s.fail(ctx, err)
		return
	}

	dto.SuccessCreatedResponse(ctx, dto.MutationResponse{
		Event: &event,
		List:  s.page(ctx, ""),
	})
}

func (s *service) Donate(ctx *ginext.Context) {
	var req dto.DonationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse donation request")
		dto.FieldIncorrectError(ctx, dto.MsgInvalidDonation)
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Warn().Msgf("validation failed: %v", verr)
		switch validator.Field(verr) {
		case "Method":
			dto.FieldIncorrectError(ctx, dto.MsgInvalidPayment)
		case "Email":
			dto.FieldBadFormatError(ctx, "email")
		default:
			dto.FieldIncorrectError(ctx, dto.MsgInvalidDonation)
		}
		return
	}

	method := model.PaymentMethod(req.Method)
	event, err := s.board.Donate(ctx.Request.Context(), ctx.Param("id"), req.Amount, method)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	if req.Email != "" && s.mail.Enabled() {
		go func(to, name string) {
			_ = s.mail.SendReceipt(to, name, req.Amount, method)
		}(req.Email, event.Name)
	}

	dto.SuccessResponse(ctx, dto.MutationResponse{
		Message: mailer.ThankYouMessage(req.Amount, method),
		Event:   &event,
		List:    s.page(ctx, ""),
	})
}

func (s *service) EditEvent(ctx *ginext.Context) {
	var req dto.EditEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse edit event request")
		dto.FieldIncorrectError(ctx, dto.MsgPartialEdit)
		return
	}
	if req.Name == nil || req.Goal == nil {
		dto.FieldIncorrectError(ctx, dto.MsgPartialEdit)
		return
	}

	event, err := s.board.EditEvent(ctx.Request.Context(), ctx.Param("id"), *req.Name, *req.Goal)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.MutationResponse{
		Event: &event,
		List:  s.page(ctx, ""),
	})
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
	confirmed, _ := strconv.ParseBool(ctx.Query("confirm"))
	if !confirmed {
		dto.BadResponseError(ctx, dto.ConfirmationRequired, dto.MsgConfirmDelete)
		return
	}

	if err := s.board.DeleteEvent(ctx.Request.Context(), ctx.Param("id")); err != nil {
		s.fail(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.MutationResponse{
		List: s.page(ctx, ""),
	})
}

func (s *service) AdminLogin(ctx *ginext.Context) {
	var req dto.AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.WrongPINError(ctx)
		return
	}
	if !s.gate.CheckPIN(req.PIN) {
		s.log.Warn().Str("ip", ctx.ClientIP()).Msg("wrong admin PIN")
		dto.WrongPINError(ctx)
		return
	}

	token, _, err := s.gate.Issue()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue admin token")
		dto.InternalServerError(ctx)
		return
	}
	ctx.SetCookie(auth.CookieName, token, int(s.gate.TTL().Seconds()), "/", "", false, true)

	s.log.Info().Str("ip", ctx.ClientIP()).Msg("admin mode enabled")
	dto.SuccessResponse(ctx, dto.AdminResponse{
		Admin:   true,
		Token:   token,
		Message: dto.MsgAdminOn,
	})
}

func (s *service) AdminLogout(ctx *ginext.Context) {
	ctx.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	dto.SuccessResponse(ctx, dto.AdminResponse{
		Admin:   false,
		Message: dto.MsgAdminOff,
	})
}

func (s *service) AdminStatus(ctx *ginext.Context) {
	dto.SuccessResponse(ctx, dto.AdminResponse{Admin: s.gate.IsAdmin(ctx)})
}

func (s *service) Export(ctx *ginext.Context) {
	switch strings.ToLower(ctx.DefaultQuery("format", "json")) {
	case "json":
		data, err := s.board.Export()
		if err != nil {
			s.log.Error().Err(err).Msg("failed to export events")
			dto.InternalServerError(ctx)
			return
		}
		ctx.Header("Content-Disposition", `attachment; filename="`+board.ExportFileName+`"`)
		ctx.Data(http.StatusOK, "application/json", data)
	case "csv":
		var buf bytes.Buffer
		if err := s.board.ExportCSV(&buf); err != nil {
			s.log.Error().Err(err).Msg("failed to export events as csv")
			dto.InternalServerError(ctx)
			return
		}
		ctx.Header("Content-Disposition", `attachment; filename="`+board.ExportCSVFileName+`"`)
		ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	default:
		dto.FieldIncorrectError(ctx, dto.MsgInvalidFormat)
	}
}

func (s *service) Import(ctx *ginext.Context) {
	data, err := readUpload(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read import upload")
		dto.BadResponseError(ctx, dto.InvalidImport, dto.MsgInvalidImport)
		return
	}

	n, err := s.board.Import(ctx.Request.Context(), data)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.ImportResponse{
		Imported: n,
		Message:  dto.MsgImportDone,
		List:     s.page(ctx, ""),
	})
}

// readUpload returns the multipart "file" field, or the raw body for any other
// content type.
func readUpload(ctx *ginext.Context) ([]byte, error) {
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fh, err := ctx.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImportSize))
	}
	return io.ReadAll(io.LimitReader(ctx.Request.Body, maxImportSize))
}

func (s *service) page(ctx *ginext.Context, query string) render.Page {
	return render.NewPage(s.board.Search(query), s.board.Stats(), query, s.gate.IsAdmin(ctx), s.board.Notice())
}

func (s *service) fail(ctx *ginext.Context, err error) {
	switch {
	case errors.Is(err, board.ErrEventNotFound):
		dto.EventNotFoundError(ctx)
	case errors.Is(err, board.ErrInvalidEvent):
		dto.FieldIncorrectError(ctx, dto.MsgInvalidEvent)
	case errors.Is(err, board.ErrInvalidDonation):
		dto.FieldIncorrectError(ctx, dto.MsgInvalidDonation)
	case errors.Is(err, board.ErrInvalidPayment):
		dto.FieldIncorrectError(ctx, dto.MsgInvalidPayment)
	case errors.Is(err, board.ErrPartialEdit):
		dto.FieldIncorrectError(ctx, dto.MsgPartialEdit)
	case errors.Is(err, board.ErrInvalidImport):
		s.log.Warn().Err(err).Msg("import rejected")
		dto.BadResponseError(ctx, dto.InvalidImport, dto.MsgInvalidImport)
	default:
		s.log.Error().Err(err).Msg("request failed")
		dto.InternalServerError(ctx)
	}
}
