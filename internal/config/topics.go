package config

const (
	// TopicChatRequest is the default NSQ topic for queued chat jobs.
	TopicChatRequest = "chat.request"

	// TopicChatResult is the default NSQ topic for finished chat results.
	TopicChatResult = "chat.request.result"

	// ChannelWorker is the consumer channel the chat worker subscribes on.
	ChannelWorker = "worker"
)
