package handlers

import (
	"errors"
	"log"
	"net/http"

	"gridquiz/internal/imaging"
	"gridquiz/internal/quiz"
	"gridquiz/internal/service"
	"gridquiz/internal/validation"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	http.Error(w, userMsg, status)
}

// userMessage maps an error a learner can fix to the message shown on the
// page. ok is false for errors that are the server's fault.
func userMessage(err error) (msg string, ok bool) {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		switch verr.Field {
		case "rows", "cols":
			return MsgDimensionRange, true
		case "guess":
			return MsgGuessInvalid, true
		case "email":
			return MsgEmailInvalid, true
		}
		return verr.Message, true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, quiz.ErrNotVisualized):
		return MsgNotVisualized, true
	case errors.Is(err, quiz.ErrInvalidMode), errors.Is(err, quiz.ErrMissingAsset), errors.Is(err, service.ErrUnknownChoice):
		return MsgChoiceInvalid, true
	case errors.Is(err, service.ErrImageNotFound):
		return MsgImageMissing, true
	case errors.Is(err, imaging.ErrEmpty), errors.Is(err, imaging.ErrUnsupportedFormat):
		return MsgUploadFormat, true
	case errors.Is(err, imaging.ErrTooLarge), errors.As(err, &tooLarge):
		return MsgUploadTooLarge, true
	case errors.Is(err, service.ErrChallengeUpload):
		return MsgChallengeUpload, true
	case errors.Is(err, service.ErrInvalidChallenge):
		return MsgChallengeInvalid, true
	}
	return "", false
}
