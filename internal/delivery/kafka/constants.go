package kafka

const (
	TopicDealCreated = "deals.created"
	TopicDealUpdated = "deals.updated"
	TopicDealStatus  = "deals.status"
	TopicDealClaimed = "deals.claimed"

	SchemaVersion = 1
)

func allTopics() []string {
	return []string{
		TopicDealCreated,
		TopicDealUpdated,
		TopicDealStatus,
		TopicDealClaimed,
	}
}
