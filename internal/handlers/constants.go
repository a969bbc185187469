package handlers

const (
	ErrInvalidFormData     = "Invalid form data"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
	ErrNotFound            = "Not found"
)

// Messages shown on the quiz page
const (
	MsgDimensionRange   = "행과 열은 1부터 12 사이의 숫자여야 해요."
	MsgGuessInvalid     = "답은 0 이상의 숫자로 입력해 주세요."
	MsgEmailInvalid     = "올바른 이메일 주소를 입력해 주세요."
	MsgNotVisualized    = "먼저 '그림 보기'를 눌러 주세요."
	MsgChoiceInvalid    = "그림 종류를 다시 골라 주세요."
	MsgImageMissing     = "올린 그림을 찾을 수 없어요. 다시 올려 주세요."
	MsgUploadFormat     = "PNG, JPEG, GIF, WebP 그림만 올릴 수 있어요."
	MsgUploadTooLarge   = "그림 파일이 너무 커요."
	MsgChallengeUpload  = "직접 올린 그림은 공유할 수 없어요."
	MsgChallengeInvalid = "도전 링크가 잘못되었거나 만료되었어요."
	MsgSummarySent      = "연습 결과를 이메일로 보냈어요."
	MsgEmailDisabled    = "이메일 보내기 기능이 꺼져 있어요."
	MsgChallengeReady   = "아래 링크를 친구에게 보내 보세요!"
)

// recentAttemptLimit is how many attempts the page and the summary email list
const recentAttemptLimit = 5
