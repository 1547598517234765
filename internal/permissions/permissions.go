package permissions

import (
	"context"
	"strconv"

	"guildwatch/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// Capability is one named permission bit. Values mirror the platform's
// permission constants so the stored bitmasks and the checks here can
// never drift apart.
type Capability uint64

const (
	KickMembers     = Capability(discordgo.PermissionKickMembers)
	BanMembers      = Capability(discordgo.PermissionBanMembers)
	ManageMessages  = Capability(discordgo.PermissionManageMessages)
	ModerateMembers = Capability(discordgo.PermissionModerateMembers)
)

// Moderator is the capability set gating the review queue and the
// auto-moderation staff exemption.
var Moderator = []Capability{ManageMessages, ModerateMembers}

type Checker struct {
	store *storage.Store
}

func NewChecker(store *storage.Store) *Checker {
	return &Checker{store: store}
}

// HasAny reports whether the union of the user's role bitmasks contains at
// least one of the required capabilities. A user with no role rows has no
// permissions; that is not an error.
func (c *Checker) HasAny(ctx context.Context, guildID, userID string, required ...Capability) (bool, error) {
	masks, err := c.store.RolePermissionMasks(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	return HasAny(UnionMask(masks), required...), nil
}

// UnionMask ORs together decimal bitmask strings. Permission values exceed
// the 53-bit range the source system could address natively, which is why
// they are stored as strings; unparsable rows contribute nothing.
func UnionMask(masks []string) uint64 {
	var union uint64
	for _, mask := range masks {
		value, err := strconv.ParseUint(mask, 10, 64)
		if err != nil {
			continue
		}
		union |= value
	}
	return union
}

func HasAny(mask uint64, required ...Capability) bool {
	for _, capability := range required {
		if mask&uint64(capability) != 0 {
			return true
		}
	}
	return false
}
