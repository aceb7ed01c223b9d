package domain

// TelemetrySnapshot is the connection-quality report of the last debugData event.
type TelemetrySnapshot struct {
	PacketsSent       int64   `json:"packets_sent"`
	PacketsReceived   int64   `json:"packets_received"`
	RoundTripTime     float64 `json:"rtt"`
	PacketLoss        float64 `json:"packet_loss"`
	BandwidthSent     float64 `json:"bandwidth_sent"`
	BandwidthReceived float64 `json:"bandwidth_received"`
}
