package enums

// NotificationChannel selects the delivery mechanism for a notification.
type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelPush     NotificationChannel = "push"
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
)

func (c NotificationChannel) String() string {
	return string(c)
}
