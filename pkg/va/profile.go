package va

import "fmt"

// Profile identifies a codec profile.
type Profile int32

// Profiles.
const (
	ProfileNone                    Profile = -1
	ProfileMPEG2Simple             Profile = 0
	ProfileMPEG2Main               Profile = 1
	ProfileMPEG4Simple             Profile = 2
	ProfileMPEG4AdvancedSimple     Profile = 3
	ProfileMPEG4Main               Profile = 4
	ProfileH264Baseline            Profile = 5
	ProfileH264Main                Profile = 6
	ProfileH264High                Profile = 7
	ProfileVC1Simple               Profile = 8
	ProfileVC1Main                 Profile = 9
	ProfileVC1Advanced             Profile = 10
	ProfileH263Baseline            Profile = 11
	ProfileJPEGBaseline            Profile = 12
	ProfileH264ConstrainedBaseline Profile = 13
	ProfileVP8Version0_3           Profile = 14
	ProfileH264MultiviewHigh       Profile = 15
	ProfileH264StereoHigh          Profile = 16
	ProfileHEVCMain                Profile = 17
	ProfileHEVCMain10              Profile = 18
	ProfileVP9Profile0             Profile = 19
	ProfileVP9Profile1             Profile = 20
	ProfileVP9Profile2             Profile = 21
	ProfileVP9Profile3             Profile = 22
	ProfileHEVCMain12              Profile = 23
	ProfileHEVCMain422_10          Profile = 24
	ProfileHEVCMain422_12          Profile = 25
	ProfileHEVCMain444             Profile = 26
	ProfileHEVCMain444_10          Profile = 27
	ProfileHEVCMain444_12          Profile = 28
	ProfileHEVCSccMain             Profile = 29
	ProfileHEVCSccMain10           Profile = 30
	ProfileHEVCSccMain444          Profile = 31
	ProfileAV1Profile0             Profile = 32
	ProfileAV1Profile1             Profile = 33
	ProfileHEVCSccMain444_10       Profile = 34
	ProfileProtected               Profile = 35
)

var profileNames = map[Profile]string{
	ProfileNone:                    "VAProfileNone",
	ProfileMPEG2Simple:             "VAProfileMPEG2Simple",
	ProfileMPEG2Main:               "VAProfileMPEG2Main",
	ProfileMPEG4Simple:             "VAProfileMPEG4Simple",
	ProfileMPEG4AdvancedSimple:     "VAProfileMPEG4AdvancedSimple",
	ProfileMPEG4Main:               "VAProfileMPEG4Main",
	ProfileH264Baseline:            "VAProfileH264Baseline",
	ProfileH264Main:                "VAProfileH264Main",
	ProfileH264High:                "VAProfileH264High",
	ProfileVC1Simple:               "VAProfileVC1Simple",
	ProfileVC1Main:                 "VAProfileVC1Main",
	ProfileVC1Advanced:             "VAProfileVC1Advanced",
	ProfileH263Baseline:            "VAProfileH263Baseline",
	ProfileJPEGBaseline:            "VAProfileJPEGBaseline",
	ProfileH264ConstrainedBaseline: "VAProfileH264ConstrainedBaseline",
	ProfileVP8Version0_3:           "VAProfileVP8Version0_3",
	ProfileH264MultiviewHigh:       "VAProfileH264MultiviewHigh",
	ProfileH264StereoHigh:          "VAProfileH264StereoHigh",
	ProfileHEVCMain:                "VAProfileHEVCMain",
	ProfileHEVCMain10:              "VAProfileHEVCMain10",
	ProfileVP9Profile0:             "VAProfileVP9Profile0",
	ProfileVP9Profile1:             "VAProfileVP9Profile1",
	ProfileVP9Profile2:             "VAProfileVP9Profile2",
	ProfileVP9Profile3:             "VAProfileVP9Profile3",
	ProfileHEVCMain12:              "VAProfileHEVCMain12",
	ProfileHEVCMain422_10:          "VAProfileHEVCMain422_10",
	ProfileHEVCMain422_12:          "VAProfileHEVCMain422_12",
	ProfileHEVCMain444:             "VAProfileHEVCMain444",
	ProfileHEVCMain444_10:          "VAProfileHEVCMain444_10",
	ProfileHEVCMain444_12:          "VAProfileHEVCMain444_12",
	ProfileHEVCSccMain:             "VAProfileHEVCSccMain",
	ProfileHEVCSccMain10:           "VAProfileHEVCSccMain10",
	ProfileHEVCSccMain444:          "VAProfileHEVCSccMain444",
	ProfileAV1Profile0:             "VAProfileAV1Profile0",
	ProfileAV1Profile1:             "VAProfileAV1Profile1",
	ProfileHEVCSccMain444_10:       "VAProfileHEVCSccMain444_10",
	ProfileProtected:               "VAProfileProtected",
}

func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return fmt.Sprintf("VAProfile(%d)", int32(p))
}

// ParseProfile looks a profile up by its VA name, with or without the
// "VAProfile" prefix.
func ParseProfile(name string) (Profile, bool) {
	for p, n := range profileNames {
		if n == name || n == "VAProfile"+name {
			return p, true
		}
	}
	return ProfileNone, false
}

// Entrypoint identifies the pipeline stage a config targets.
type Entrypoint int32

// Entrypoints.
const (
	EntrypointVLD              Entrypoint = 1
	EntrypointIZZ              Entrypoint = 2
	EntrypointIDCT             Entrypoint = 3
	EntrypointMoComp           Entrypoint = 4
	EntrypointDeblocking       Entrypoint = 5
	EntrypointEncSlice         Entrypoint = 6
	EntrypointEncPicture       Entrypoint = 7
	EntrypointEncSliceLP       Entrypoint = 8
	EntrypointVideoProc        Entrypoint = 10
	EntrypointFEI              Entrypoint = 11
	EntrypointStats            Entrypoint = 12
	EntrypointProtectedTEEComm Entrypoint = 13
	EntrypointProtectedContent Entrypoint = 14
)

var entrypointNames = map[Entrypoint]string{
	EntrypointVLD:              "VAEntrypointVLD",
	EntrypointIZZ:              "VAEntrypointIZZ",
	EntrypointIDCT:             "VAEntrypointIDCT",
	EntrypointMoComp:           "VAEntrypointMoComp",
	EntrypointDeblocking:       "VAEntrypointDeblocking",
	EntrypointEncSlice:         "VAEntrypointEncSlice",
	EntrypointEncPicture:       "VAEntrypointEncPicture",
	EntrypointEncSliceLP:       "VAEntrypointEncSliceLP",
	EntrypointVideoProc:        "VAEntrypointVideoProc",
	EntrypointFEI:              "VAEntrypointFEI",
	EntrypointStats:            "VAEntrypointStats",
	EntrypointProtectedTEEComm: "VAEntrypointProtectedTEEComm",
	EntrypointProtectedContent: "VAEntrypointProtectedContent",
}

func (e Entrypoint) String() string {
	if name, ok := entrypointNames[e]; ok {
		return name
	}
	return fmt.Sprintf("VAEntrypoint(%d)", int32(e))
}

// ParseEntrypoint looks an entrypoint up by its VA name, with or without the
// "VAEntrypoint" prefix.
func ParseEntrypoint(name string) (Entrypoint, bool) {
	for e, n := range entrypointNames {
		if n == name || n == "VAEntrypoint"+name {
			return e, true
		}
	}
	return 0, false
}

// IsEncode reports whether the entrypoint produces a coded bitstream.
func (e Entrypoint) IsEncode() bool {
	switch e {
	case EntrypointEncSlice, EntrypointEncPicture, EntrypointEncSliceLP, EntrypointFEI:
		return true
	}
	return false
}

// IsDecode reports whether the entrypoint consumes a coded bitstream.
func (e Entrypoint) IsDecode() bool {
	switch e {
	case EntrypointVLD, EntrypointIZZ, EntrypointIDCT, EntrypointMoComp, EntrypointDeblocking:
		return true
	}
	return false
}
