package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"donationBoard/internal/model"
	"donationBoard/internal/render"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound        = "EVENT_NOT_FOUND"
	AdminRequired        = "ADMIN_REQUIRED"
	WrongPIN             = "WRONG_PIN"
	ConfirmationRequired = "CONFIRMATION_REQUIRED"
	InvalidImport        = "INVALID_IMPORT"
)

// User-facing messages, shown by the client as alerts.
const (
	MsgInvalidEvent    = "Preencha nome e meta válidos!"
	MsgInvalidDonation = "Valor inválido!"
	MsgInvalidPayment  = "Forma de pagamento inválida!"
	MsgPartialEdit     = "Informe nome e meta para editar."
	MsgInvalidImport   = "Arquivo inválido!"
	MsgImportDone      = "Importação concluída ✅"
	MsgWrongPIN        = "PIN incorreto!"
	MsgAdminOn         = "Modo admin ativado ✅"
	MsgAdminOff        = "Modo admin desativado"
	MsgConfirmDelete   = "Deseja excluir? Confirme com confirm=true."
	MsgEventNotFound   = "Evento não encontrado."
	MsgAdminRequired   = "Disponível apenas no modo admin."
	MsgInvalidFormat   = "Formato de exportação inválido."
)

type CreateEventRequest struct {
	Name string  `json:"nome" validate:"required"`
	Goal float64 `json:"meta" validate:"positive"`
}

type EditEventRequest struct {
	Name *string  `json:"nome"`
	Goal *float64 `json:"meta"`
}

type DonationRequest struct {
	Amount float64 `json:"valor" validate:"positive"`
	Method string  `json:"tipo" validate:"required,payment"`
	Email  string  `json:"email,omitempty" validate:"omitempty,email"`
}

type AdminLoginRequest struct {
	PIN string `json:"pin"`
}

type EventResponse struct {
	Event model.Event `json:"evento"`
	Card  render.Card `json:"card"`
}

type MutationResponse struct {
	Message string       `json:"mensagem,omitempty"`
	Event   *model.Event `json:"evento,omitempty"`
	List    render.Page  `json:"lista"`
}

type AdminResponse struct {
	Admin   bool   `json:"admin"`
	Token   string `json:"token,omitempty"`
	Message string `json:"mensagem,omitempty"`
}

type ImportResponse struct {
	Imported int         `json:"importados"`
	Message  string      `json:"mensagem"`
	List     render.Page `json:"lista"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func ErrorResponse(c *ginext.Context, status int, code, desc string) {
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	ErrorResponse(c, http.StatusBadRequest, code, desc)
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func FieldBadFormatError(c *ginext.Context, fieldName string) {
	BadResponseError(c, FieldBadFormat, "Field '"+fieldName+"' has bad format")
}

func FieldIncorrectError(c *ginext.Context, desc string) {
	BadResponseError(c, FieldIncorrect, desc)
}

func EventNotFoundError(c *ginext.Context) {
	ErrorResponse(c, http.StatusNotFound, EventNotFound, MsgEventNotFound)
}

func AdminRequiredError(c *ginext.Context) {
	ErrorResponse(c, http.StatusForbidden, AdminRequired, MsgAdminRequired)
}

func WrongPINError(c *ginext.Context) {
	ErrorResponse(c, http.StatusUnauthorized, WrongPIN, MsgWrongPIN)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
