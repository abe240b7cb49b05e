// Package agora mints RTC channel tokens for the media layer. Token minting
// is a pure signing function over the channel name, numeric uid, role and
// expiry; everything else about the media transport lives outside this
// service.
package agora

import (
	"fmt"
	"time"

	rtctokenbuilder "github.com/AgoraIO-Community/go-tokenbuilder/rtctokenbuilder"
)

// TokenMinter mints a media channel token for a user joining a channel
type TokenMinter interface {
	Mint(channelName string, uid uint32, role string, expireSeconds uint32) (string, error)
}

type minter struct {
	appID          string
	appCertificate string
}

// NewMinter creates a TokenMinter backed by the Agora RTC token builder
func NewMinter(appID, appCertificate string) TokenMinter {
	return &minter{appID: appID, appCertificate: appCertificate}
}

func (m *minter) Mint(channelName string, uid uint32, role string, expireSeconds uint32) (string, error) {
	var rtcRole rtctokenbuilder.Role = rtctokenbuilder.RolePublisher
	if role == "subscriber" {
		rtcRole = rtctokenbuilder.RoleSubscriber
	}

	expireTimestamp := uint32(time.Now().Unix()) + expireSeconds

	token, err := rtctokenbuilder.BuildTokenWithUID(m.appID, m.appCertificate, channelName, uid, rtcRole, expireTimestamp)
	if err != nil {
		return "", fmt.Errorf("failed to build rtc token: %w", err)
	}
	return token, nil
}
