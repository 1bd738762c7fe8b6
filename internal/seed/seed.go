// Package seed populates the database with generated demo data.
package seed

import (
	"fmt"
	"log"
	"math/rand"

	"mumble/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tags = []string{
	"coffee", "golang", "running", "music", "travel",
	"photography", "cooking", "books", "cycling", "movies",
}

// Options controls the amount of generated data.
type Options struct {
	Users   int
	Posts   int
	Clean   bool
	Replies int
}

// Run fills the database with users, posts, replies, likes and follows.
func Run(db *gorm.DB, opts Options) error {
	if opts.Clean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
	}

	users, err := createUsers(db, opts.Users)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	posts, err := createPosts(db, users, opts.Posts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	replies, err := createReplies(db, users, posts, opts.Replies)
	if err != nil {
		return fmt.Errorf("failed to create replies: %w", err)
	}
	log.Printf("created %d replies", replies)

	likes, err := addLikes(db, users, posts)
	if err != nil {
		return fmt.Errorf("failed to add likes: %w", err)
	}
	log.Printf("added %d likes", likes)

	follows, err := addFollows(db, users)
	if err != nil {
		return fmt.Errorf("failed to add follows: %w", err)
	}
	log.Printf("added %d follows", follows)

	return nil
}

func clearData(db *gorm.DB) error {
	for _, table := range []string{"likes", "follows", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, n int) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		user := models.User{
			ID:        gofakeit.UUID(),
			Username:  fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Firstname: gofakeit.FirstName(),
			Lastname:  gofakeit.LastName(),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func postText() *string {
	text := gofakeit.Sentence(rand.Intn(12) + 3)
	if rand.Intn(3) == 0 {
		text += " #" + tags[rand.Intn(len(tags))]
	}
	return &text
}

func createPosts(db *gorm.DB, users []models.User, n int) ([]models.Post, error) {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		post := models.Post{
			CreatorID: users[rand.Intn(len(users))].ID,
			Text:      postText(),
		}
		if err := db.Omit(clause.Associations).Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func createReplies(db *gorm.DB, users []models.User, posts []models.Post, n int) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}
	for i := 0; i < n; i++ {
		parent := posts[rand.Intn(len(posts))]
		reply := models.Post{
			CreatorID: users[rand.Intn(len(users))].ID,
			Text:      postText(),
			ParentID:  &parent.ID,
		}
		if err := db.Omit(clause.Associations).Create(&reply).Error; err != nil {
			return i, err
		}
	}
	return n, nil
}

func addLikes(db *gorm.DB, users []models.User, posts []models.Post) (int, error) {
	count := 0
	for _, post := range posts {
		for _, user := range users {
			if rand.Intn(4) != 0 {
				continue
			}
			like := models.Like{PostID: post.ID, UserID: user.ID}
			if err := db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func addFollows(db *gorm.DB, users []models.User) (int, error) {
	count := 0
	for _, follower := range users {
		for _, followee := range users {
			if follower.ID == followee.ID || rand.Intn(5) != 0 {
				continue
			}
			follow := models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}
			if err := db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&follow).Error; err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}
