package contextkeys

import "context"

type messageTypeKey struct{}
type callbackDataKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeCommand     MessageType = "command"
	MessageTypeClickButton MessageType = "ckickButton"
	MessageTypeUnknown     MessageType = "unknown"
)

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v := ctx.Value(messageTypeKey{})
	if v == nil {
		return MessageTypeUnknown, false
	}
	return v.(MessageType), true
}

func IsTextMessage(ctx context.Context) bool {
	msgType, ok := GetMessageType(ctx)
	return ok && msgType == MessageTypeText
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey{}, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	v := ctx.Value(callbackDataKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}
