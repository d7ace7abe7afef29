package config

// DefaultRelevanceKeywords is the base topic-relevance set used by the
// ingestion filter. Yemen-focused news coverage, Arabic plus the Latin
// spellings wire services use.
var DefaultRelevanceKeywords = []string{
	"اليمن", "يمني", "صنعاء", "عدن", "تعز", "الحديدة", "مأرب",
	"حضرموت", "إب", "ذمار", "صعدة", "شبوة", "المهرة", "لحج", "أبين",
	"الحوثي", "الحوثيين", "أنصار الله", "المجلس الرئاسي",
	"الشرعية", "التحالف", "هدنة", "وقف إطلاق النار", "مفاوضات",
	"الأمم المتحدة", "المبعوث الأممي", "غريفيث", "غروندبرغ",
	"مساعدات إنسانية", "نازحين", "مجاعة", "كوليرا", "فيضانات", "سيول",
	"الريال اليمني", "البنك المركزي", "رواتب", "وقود", "مشتقات نفطية",
	"باب المندب", "البحر الأحمر", "خليج عدن", "سفينة", "ملاحة",
	"yemen", "yemeni", "sanaa", "sana'a", "aden", "taiz", "hodeidah",
	"hodeida", "marib", "hadhramaut", "houthi", "houthis",
	"bab al-mandab", "red sea", "gulf of aden",
}

// DefaultCategoryKeywords maps category slugs to their keyword sets for
// per-item classification of mixed-category sources.
var DefaultCategoryKeywords = map[string][]string{
	"politics": {
		"سياسة", "حكومة", "رئيس", "وزير", "برلمان", "انتخابات",
		"مفاوضات", "اتفاق", "مجلس", "سفير", "دبلوماسي", "قرار",
		"الأمم المتحدة", "مبعوث",
	},
	"security": {
		"أمن", "عسكري", "جبهة", "اشتباكات", "قصف", "غارة", "صاروخ",
		"طائرة مسيرة", "انفجار", "لغم", "تفجير", "مقتل", "هجوم",
		"قوات", "جيش", "معارك",
	},
	"economy": {
		"اقتصاد", "ريال", "دولار", "أسعار", "سوق", "بنك", "عملة",
		"صرف", "رواتب", "نفط", "غاز", "وقود", "ميناء", "جمارك",
		"تجارة", "استيراد",
	},
	"local": {
		"محافظة", "مديرية", "محلي", "مدينة", "قرية", "سكان", "أهالي",
		"مياه", "كهرباء", "طرق", "مشروع", "خدمات",
	},
	"sports": {
		"رياضة", "كرة القدم", "مباراة", "منتخب", "بطولة", "دوري",
		"لاعب", "نادي", "هدف", "فوز",
	},
	"health": {
		"صحة", "مستشفى", "وباء", "كوليرا", "حمى", "لقاح", "دواء",
		"مرضى", "إصابات", "علاج",
	},
}

// DefaultUserAgents is the rotation pool for page scraping. Kept to
// common desktop browser strings since several outlets block obvious
// bot agents.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}
