package nakama

import (
	"fmt"

	"github.com/zhangyumengsarah-gif/word/internal/domain"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// matchLabel renders the searchable label, e.g. {"open":1,"game":"letterpeng","status":"waiting"}.
func matchLabel(snap domain.Snapshot) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKeyOpenSeats: snap.OpenSeats,
		MatchLabelKeyGame:      GameName,
		MatchLabelKeyStatus:    string(snap.Status),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build label: %w", err)
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", fmt.Errorf("failed to marshal label: %w", err)
	}
	return string(labelBytes), nil
}
