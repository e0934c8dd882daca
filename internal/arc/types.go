package arc

import "hash/crc32"

type fileType struct{ name, ext string }

// fileTypes maps resource class names to the extension files of that type are
// extracted with.
var fileTypes = []fileType{
	{"rArchive", "arc"},
	{"rCameraList", "lcm"},
	{"rChainCol", "ccl"},
	{"rCnsTinyChain", "ctc"},
	{"rCollision", "sbc"},
	{"rEffectAnim", "ean"},
	{"rEffectList", "efl"},
	{"rEnemyCmd", "emc"},
	{"rEnemyData", "emd"},
	{"rEnemyTuneData", "etd"},
	{"rEventActorTbl", "evt"},
	{"rGrass2", "gr2"},
	{"rGrass2Setting", "gr2s"},
	{"rGrassWind", "grw"},
	{"rItemPopList", "ipl"},
	{"rItemPopSet", "ips"},
	{"rLayout", "lyt"},
	{"rLayoutAnimeList", "lanl"},
	{"rLayoutFont", "lfd"},
	{"rLayoutMessage", "lmd"},
	{"rLtProceduralTexture", "ptex"},
	{"rLtShader", "lfx"},
	{"rLtSoundBank", "sbk"},
	{"rLtSoundCategoryFilter", "cfl"},
	{"rLtSoundRequest", "srq"},
	{"rLtSoundReverb", "rev_ctr"},
	{"rLtSoundSourceADPCM", "mca"},
	{"rLtSoundStreamRequest", "stq"},
	{"rMHSoundEmitter", "ses"},
	{"rMHSoundSequence", "mss"},
	{"rMaterial", "mrl"},
	{"rMhMotionEffect", "mef"},
	{"rModel", "mod"},
	{"rMotionList", "lmt"},
	{"rMovieOnDisk", "moflex"},
	{"rQuestData", "mib"},
	{"rScheduler", "sdl"},
	{"rSoundAttributeSe", "ase"},
	{"rSoundCurveSet", "scs"},
	{"rSoundDirectionalSet", "sds"},
	{"rStageAreaInfo", "sai"},
	{"rStageCameraData", "scd"},
	{"rStageInfoSet", "sis"},
	{"rSwkbdMessageStyleTable", "skst"},
	{"rSwkbdMessageTable", "skmt"},
	{"rSwkbdSubGroup", "sksg"},
	{"rTexture", "tex"},
	{"rAIWayPoint", "way"},
	{"rGUI", "gui"},
	{"rGUIFont", "gfd"},
	{"rGUIIconInfo", "gii"},
	{"rGUIMessage", "gmd"},
	{"rItemData", "itm"},
	{"rLayoutAnime", "lan"},
	{"rShell", "shell"},
	{"rSoundBank", "sbkr"},
	{"rSoundRequest", "srqr"},
	{"rSoundStreamRequest", "stqr"},
	{"rShopList", "slt"},
}

var (
	byCode = make(map[uint32]fileType, len(fileTypes))
	byExt  = make(map[string]uint32, len(fileTypes))
)

func init() {
	for _, ft := range fileTypes {
		code := TypeCode(ft.name)
		byCode[code] = ft
		if _, dup := byExt[ft.ext]; !dup {
			byExt[ft.ext] = code
		}
	}
}

// TypeCode hashes a resource class name into the code stored in the table
// of contents.
func TypeCode(name string) uint32 {
	return (crc32.ChecksumIEEE([]byte(name)) ^ 0xffffffff) & 0x7fffffff
}
