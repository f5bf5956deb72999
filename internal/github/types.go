package github

// User 是 GET /users 列表中的单个条目。
type User struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	ID        int    `json:"id"`
}

// UserDetails 是 GET /users/{login} 的响应。Location 可能为 null。
type UserDetails struct {
	Login     string  `json:"login"`
	AvatarURL string  `json:"avatar_url"`
	Blog      string  `json:"blog"`
	Location  *string `json:"location"`
	Followers int     `json:"followers"`
	Following int     `json:"following"`
	Name      string  `json:"name"`
}

// NextSince 返回下一页的 since 游标，即本页最后一个用户的 ID；空页返回 0。
func NextSince(users []User) int {
	if len(users) == 0 {
		return 0
	}
	return users[len(users)-1].ID
}
