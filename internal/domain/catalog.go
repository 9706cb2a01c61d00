package domain

// TrackedPage is one entry of the page catalog
type TrackedPage struct {
	Page          string `json:"page"`
	DisplayName   string `json:"name"`
	DisplayNameEn string `json:"name_en"`
	Path          string `json:"path"`
	Description   string `json:"description"`
}

// PageCatalog is the ordered list of tracked pages
type PageCatalog []TrackedPage

// Contains reports whether page is tracked
func (c PageCatalog) Contains(page string) bool {
	_, ok := c.Lookup(page)
	return ok
}

// Lookup returns the catalog entry for page
func (c PageCatalog) Lookup(page string) (TrackedPage, bool) {
	for _, p := range c {
		if p.Page == page {
			return p, true
		}
	}
	return TrackedPage{}, false
}

// DefaultPageCatalog returns the platform's tracked pages in display order
func DefaultPageCatalog() PageCatalog {
	return PageCatalog{
		{Page: "home", DisplayName: "الصفحة الرئيسية", DisplayNameEn: "Home Page", Path: "/", Description: "الصفحة الرئيسية للمنصة"},
		{Page: "candidates", DisplayName: "صفحة المرشحين", DisplayNameEn: "Candidates Page", Path: "/candidates", Description: "صفحة عرض المرشحين"},
		{Page: "members", DisplayName: "صفحة الأعضاء", DisplayNameEn: "Members Page", Path: "/members", Description: "صفحة عرض أعضاء المجالس"},
		{Page: "complaints", DisplayName: "صفحة الشكاوى", DisplayNameEn: "Complaints Page", Path: "/complaints", Description: "صفحة تقديم الشكاوى"},
		{Page: "messages", DisplayName: "صفحة الرسائل", DisplayNameEn: "Messages Page", Path: "/messages", Description: "صفحة الرسائل"},
		{Page: "about", DisplayName: "صفحة حول المنصة", DisplayNameEn: "About Page", Path: "/about", Description: "صفحة التعريف بالمنصة"},
		{Page: "contact", DisplayName: "صفحة اتصل بنا", DisplayNameEn: "Contact Page", Path: "/contact", Description: "صفحة التواصل"},
	}
}
