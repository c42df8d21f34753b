package keyword

// Domain word lists for the rule-based extractor. These mirror the vocabulary
// that matters for policy documents: single-character medical/insurance atoms
// that survive the length filter, question words and weightless bound nouns
// that never help retrieval, and the particles stripped from the tail of an
// eojeol.

// importantSingleChar lists one-character nouns kept despite the two-character
// minimum.
var importantSingleChar = map[string]struct{}{
	"암": {}, "간": {}, "폐": {}, "위": {}, "뇌": {},
	"심": {}, "장": {}, "혈": {}, "골": {}, "신": {},
	"눈": {}, "귀": {}, "코": {}, "입": {}, "치": {},
	"손": {}, "발": {}, "목": {},
}

// stopWords are question words and bound nouns without retrieval weight.
var stopWords = map[string]struct{}{
	"얼마": {}, "얼마나": {}, "어디": {}, "언제": {}, "누구": {},
	"무엇": {}, "뭐": {}, "왜": {}, "어떻게": {}, "어느": {},
	"어떤": {}, "무슨": {}, "몇": {}, "어찌": {},
	"하는": {}, "되는": {}, "있는": {},
	"것": {}, "수": {}, "때": {}, "등": {}, "및": {}, "또": {},
}

// particles are stripped from the end of a token, longest first.
var particles = []string{
	"에서부터", "으로부터", "이란", "에서", "으로", "부터", "까지",
	"은", "는", "이", "가", "을", "를", "의", "에", "와", "과", "도", "만", "로", "란",
}

// predicateEndings mark tokens that are verb or question forms rather than
// nouns; a token ending in one of these is dropped outright.
var predicateEndings = []string{
	"습니다", "입니다", "인가요", "되나요", "하나요", "주세요",
	"세요", "나요", "가요", "까요", "한다", "된다", "하여", "되어",
	"해줘", "려줘", "다오", "인가", "일까", "할까", "어요", "아요", "줘",
}
