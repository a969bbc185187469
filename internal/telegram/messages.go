package telegram

import (
	"errors"
	"fmt"
	"strings"

	"gridquiz/internal/catalog"
	"gridquiz/internal/imaging"
	"gridquiz/internal/quiz"
	"gridquiz/internal/service"
	"gridquiz/internal/validation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data carried by the inline buttons
const (
	callbackVisualize = "visualize"
	callbackReset     = "reset"
	callbackGlyph     = "glyph:"
	callbackSample    = "sample:"
)

const placeholderSymbol = "⬜"

const (
	msgMenu = "🍎 곱셈 놀이\n\n" +
		"/size 행 열 로 크기를 정해요. (예: /size 3 4)\n" +
		"아래에서 그림을 고르면 문제가 나와요.\n" +
		"사진을 보내면 내 그림으로 문제를 만들어요.\n" +
		"그림을 세어서 숫자로 답해 주세요."
	msgCurrent        = "지금 설정: %d행 × %d열, %s"
	msgSizeSet        = "%d행 × %d열로 정했어요."
	msgPhotoSaved     = "사진을 받았어요! '그림 보기'를 눌러 보세요."
	msgResetDone      = "처음 설정으로 돌아왔어요."
	msgGridCaption    = "%d행 × %d열이에요. 모두 몇 개일까요?"
	msgNoUpload       = "(업로드된 이미지 없음)"
	msgCorrect        = "✅ 정답이에요! 🎉 모두 %d개예요."
	msgIncorrect      = "❌ 아쉬워요. %d개가 아니라 %d개예요."
	msgStats          = "📊 푼 문제 %d개 · 맞힌 문제 %d개 · 정확도 %.0f%%"
	msgUnknownCommand = "알 수 없는 명령이에요. /quiz 를 눌러 보세요."
	msgTryLater       = "문제가 생겼어요. 잠시 후 다시 해 주세요."

	msgSizeUsage      = "/size 3 4 처럼 행과 열을 써 주세요."
	msgDimensionRange = "행과 열은 1부터 12 사이의 숫자여야 해요."
	msgGuessInvalid   = "답은 0 이상의 숫자로 보내 주세요."
	msgNotVisualized  = "먼저 '그림 보기'를 눌러 주세요."
	msgChoiceInvalid  = "그림 종류를 다시 골라 주세요."
	msgImageMissing   = "보낸 사진을 찾을 수 없어요. 다시 보내 주세요."
	msgUploadFormat   = "PNG, JPEG, GIF, WebP 그림만 쓸 수 있어요."
	msgUploadTooLarge = "사진이 너무 커요."
)

// parseSize reads "/size" arguments: two numbers separated by spaces, x or ×
func parseSize(args string) (rows, cols int, err error) {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return r == ' ' || r == 'x' || r == 'X' || r == '×' || r == '*' || r == ','
	})
	if len(fields) != 2 {
		return 0, 0, validation.ValidationError{Field: "size", Message: "needs rows and cols"}
	}

	if rows, err = validation.ParseInt("rows", fields[0]); err != nil {
		return 0, 0, err
	}
	if cols, err = validation.ParseInt("cols", fields[1]); err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// sendablePhoto reports whether Telegram accepts the URL as a photo; it rejects SVG
func sendablePhoto(url string) bool {
	path := strings.ToLower(url)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return !strings.HasSuffix(path, ".svg")
}

// textGrid draws rows lines of cols symbols
func textGrid(rows, cols int, symbol string) string {
	line := strings.TrimSpace(strings.Repeat(symbol+" ", cols))
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func selectionLabel(sel quiz.Selection) string {
	switch sel.Mode {
	case quiz.ModeGlyph:
		return sel.Asset.Glyph
	case quiz.ModeSampleImage:
		return "예시 그림 " + sel.Asset.Glyph
	case quiz.ModeUploadedImage:
		if sel.Asset.ImageID == "" {
			return "내 그림 " + msgNoUpload
		}
		return "내 그림"
	}
	return string(sel.Mode)
}

func menuText(pending quiz.Selection, notice string) string {
	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice)
		sb.WriteString("\n\n")
	}
	sb.WriteString(msgMenu)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, msgCurrent, pending.Rows, pending.Cols, selectionLabel(pending))
	return sb.String()
}

func menuKeyboard(cat *catalog.Catalog) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var glyphs []tgbotapi.InlineKeyboardButton
	for _, g := range cat.Glyphs() {
		glyphs = append(glyphs, tgbotapi.NewInlineKeyboardButtonData(g.Symbol, callbackGlyph+g.Key))
	}
	rows = append(rows, glyphs)

	if samples := cat.Samples(); len(samples) > 0 {
		var row []tgbotapi.InlineKeyboardButton
		for _, s := range samples {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("🖼 "+s.Label, callbackSample+s.Key))
		}
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👀 그림 보기", callbackVisualize),
		tgbotapi.NewInlineKeyboardButtonData("🔙 처음부터", callbackReset),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// errorMessage maps input errors to chat text. ok is false for internal errors.
func errorMessage(err error) (msg string, ok bool) {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		switch verr.Field {
		case "size":
			return msgSizeUsage, true
		case "rows", "cols":
			return msgDimensionRange, true
		case "guess":
			return msgGuessInvalid, true
		}
		return verr.Message, true
	}

	switch {
	case errors.Is(err, quiz.ErrNotVisualized):
		return msgNotVisualized, true
	case errors.Is(err, quiz.ErrInvalidMode), errors.Is(err, quiz.ErrMissingAsset), errors.Is(err, service.ErrUnknownChoice):
		return msgChoiceInvalid, true
	case errors.Is(err, service.ErrImageNotFound):
		return msgImageMissing, true
	case errors.Is(err, imaging.ErrEmpty), errors.Is(err, imaging.ErrUnsupportedFormat):
		return msgUploadFormat, true
	case errors.Is(err, imaging.ErrTooLarge):
		return msgUploadTooLarge, true
	}
	return "", false
}
